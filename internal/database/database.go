package database

import (
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DB is the sqlite store for the alert journal, price observations and metric snapshots
type DB struct {
	db *sql.DB
}

func InitDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	createAlertsTable := `
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tracker TEXT NOT NULL,
		item_id INTEGER NOT NULL,
		order_type TEXT NOT NULL,
		kind TEXT NOT NULL,
		price INTEGER NOT NULL,
		previous_price INTEGER DEFAULT NULL,
		channel TEXT NOT NULL,
		delivered BOOLEAN NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err = db.Exec(createAlertsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create alerts table: %w", err)
	}

	createObservationsTable := `
	CREATE TABLE IF NOT EXISTS observations (
		item_id INTEGER NOT NULL,
		order_type TEXT NOT NULL,
		unit_price INTEGER NOT NULL,
		observed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS observations_item ON observations (item_id, order_type, observed_at);`
	if _, err = db.Exec(createObservationsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create observations table: %w", err)
	}

	createMetricsTable := `
		CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`
	if _, err = db.Exec(createMetricsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metrics table: %w", err)
	}

	log.Println("Database initialized successfully.")
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d != nil && d.db != nil {
		return d.db.Close()
	}
	return nil
}
