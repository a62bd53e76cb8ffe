package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// AlertRecord is one dispatched alert in the journal
type AlertRecord struct {
	ID            int64
	Tracker       string
	ItemID        int
	OrderType     string
	Kind          string
	Price         int64
	PreviousPrice *int64
	Channel       string
	Delivered     bool
	CreatedAt     time.Time
}

// InsertAlert saves a dispatched alert to the journal
func (d *DB) InsertAlert(ctx context.Context, a AlertRecord) error {
	query := `
	INSERT INTO alerts (tracker, item_id, order_type, kind, price, previous_price, channel, delivered, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var previous sql.NullInt64
	if a.PreviousPrice != nil {
		previous = sql.NullInt64{Int64: *a.PreviousPrice, Valid: true}
	}

	_, err := d.db.ExecContext(ctx, query, a.Tracker, a.ItemID, a.OrderType, a.Kind, a.Price, previous, a.Channel, a.Delivered, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	log.Debugf("Alert journaled: Tracker: %s, Item: %d-%s, Kind: %s, Channel: %s, Delivered: %t", a.Tracker, a.ItemID, a.OrderType, a.Kind, a.Channel, a.Delivered)
	return nil
}

// GetAlertsByItem fetches the journal of one item side, newest first
func (d *DB) GetAlertsByItem(ctx context.Context, itemID int, orderType string, limit int) ([]AlertRecord, error) {
	query := `
	SELECT id, tracker, item_id, order_type, kind, price, previous_price, channel, delivered, created_at
	FROM alerts WHERE item_id = ? AND order_type = ?
	ORDER BY created_at DESC, id DESC LIMIT ?;`

	rows, err := d.db.QueryContext(ctx, query, itemID, orderType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var alerts []AlertRecord
	for rows.Next() {
		var a AlertRecord
		var previous sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Tracker, &a.ItemID, &a.OrderType, &a.Kind, &a.Price, &previous, &a.Channel, &a.Delivered, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if previous.Valid {
			p := previous.Int64
			a.PreviousPrice = &p
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// PruneAlerts removes journal entries older than the cutoff and returns how many were removed
func (d *DB) PruneAlerts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM alerts WHERE created_at < ?;`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune alerts: %w", err)
	}
	return res.RowsAffected()
}
