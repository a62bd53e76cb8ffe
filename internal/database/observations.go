package database

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Observation is the unit price of an item side seen during one cycle
type Observation struct {
	ItemID     int
	OrderType  string
	UnitPrice  int64
	ObservedAt time.Time
}

// InsertObservations stores a batch of observations in one transaction
func (d *DB) InsertObservations(ctx context.Context, observations []Observation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO observations (item_id, order_type, unit_price, observed_at) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range observations {
		if _, err := stmt.ExecContext(ctx, o.ItemID, o.OrderType, o.UnitPrice, o.ObservedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
	}

	return tx.Commit()
}

// RecentObservations returns up to limit latest observations of an item side, oldest first
func (d *DB) RecentObservations(ctx context.Context, itemID int, orderType string, limit int) ([]Observation, error) {
	query := `
	SELECT item_id, order_type, unit_price, observed_at FROM observations
	WHERE item_id = ? AND order_type = ?
	ORDER BY observed_at DESC, rowid DESC LIMIT ?;`

	rows, err := d.db.QueryContext(ctx, query, itemID, orderType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var observations []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ItemID, &o.OrderType, &o.UnitPrice, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		observations = append(observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(observations)
	return observations, nil
}

// PruneObservations removes observations older than the cutoff
func (d *DB) PruneObservations(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM observations WHERE observed_at < ?;`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune observations: %w", err)
	}
	return res.RowsAffected()
}
