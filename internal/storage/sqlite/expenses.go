package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/models"
)

// AddExpense persists an expense with its participants. Custom shares are
// stored next to each participant; equal splits leave share NULL.
func (s *SQLiteStore) AddExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = s.now().Unix()
	}
	if expense.Date.IsZero() {
		expense.Date = time.Unix(expense.CreatedAt, 0).UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, expense.GroupID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, category, amount, currency, paid_by, split_method, spent_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description, expense.Category, expense.Amount,
		string(expense.Currency), expense.PaidBy, string(expense.SplitMethod), expense.Date.Unix(), expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, memberID := range expense.Participants {
		var share sql.NullFloat64
		if expense.SplitMethod == models.SplitCustom {
			share = sql.NullFloat64{Float64: expense.CustomSplit[memberID], Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, member_id, position, share) VALUES (?, ?, ?, ?)",
			expense.ID, memberID, i, share,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteExpense removes an expense and its participant rows.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, groupID, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ? AND group_id = ?", expenseID, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return requireAffected(res, "expense", expenseID)
}

func (s *SQLiteStore) listExpenses(ctx context.Context, groupID string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, description, category, amount, currency, paid_by, split_method, spent_at, created_at
		 FROM expenses WHERE group_id = ? ORDER BY rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	index := make(map[string]int)
	for rows.Next() {
		var e models.Expense
		var code, method string
		var spentAt int64
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &e.Category, &e.Amount,
			&code, &e.PaidBy, &method, &spentAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Currency = currency.Code(code)
		e.SplitMethod = models.SplitMethod(method)
		e.Date = time.Unix(spentAt, 0).UTC()
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	if len(expenses) == 0 {
		return expenses, nil
	}

	// Participants for the whole group in one pass.
	partRows, err := s.db.QueryContext(ctx,
		`SELECT ep.expense_id, ep.member_id, ep.share
		 FROM expense_participants ep
		 JOIN expenses e ON e.id = ep.expense_id
		 WHERE e.group_id = ?
		 ORDER BY ep.expense_id, ep.position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense participants: %w", err)
	}
	defer partRows.Close()

	for partRows.Next() {
		var expenseID, memberID string
		var share sql.NullFloat64
		if err := partRows.Scan(&expenseID, &memberID, &share); err != nil {
			return nil, fmt.Errorf("failed to scan expense participant: %w", err)
		}
		e := &expenses[index[expenseID]]
		e.Participants = append(e.Participants, memberID)
		if share.Valid {
			if e.CustomSplit == nil {
				e.CustomSplit = make(map[string]float64)
			}
			e.CustomSplit[memberID] = share.Float64
		}
	}
	if err := partRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense participants: %w", err)
	}

	return expenses, nil
}
