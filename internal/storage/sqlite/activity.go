package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupsplit/internal/models"
)

// RecordActivity appends an entry to the activity log.
func (s *SQLiteStore) RecordActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt == 0 {
		activity.CreatedAt = s.now().Unix()
	}

	query := `
		INSERT INTO activity (id, group_id, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		activity.ID,
		activity.GroupID,
		activity.Action,
		activity.Detail,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	return nil
}

// ListActivity returns a page of the activity log, newest first.
func (s *SQLiteStore) ListActivity(ctx context.Context, limit, offset int) ([]*models.Activity, error) {
	query := `
		SELECT id, group_id, action, detail, created_at
		FROM activity
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []*models.Activity
	for rows.Next() {
		a := &models.Activity{}
		if err := rows.Scan(
			&a.ID,
			&a.GroupID,
			&a.Action,
			&a.Detail,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entries = append(entries, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}

	return entries, nil
}

// Stats counts groups, members and expenses, and totals expense amounts per currency.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM groups),
			(SELECT COUNT(*) FROM members),
			(SELECT COUNT(*) FROM expenses),
			(SELECT COUNT(*) FROM activity WHERE created_at >= ?)
	`, s.now().Add(-24*time.Hour).Unix()).Scan(
		&stats.Groups,
		&stats.Members,
		&stats.Expenses,
		&stats.ActivityLastDay,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT currency, SUM(amount), COUNT(*)
		FROM expenses
		GROUP BY currency
		ORDER BY currency
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to total expenses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t models.CurrencyTotal
		if err := rows.Scan(&t.Currency, &t.Total, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan expense total: %w", err)
		}
		stats.ExpenseTotals = append(stats.ExpenseTotals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense totals: %w", err)
	}

	return stats, nil
}
