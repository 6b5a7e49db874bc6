package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/storage"
)

// AddMember inserts a new member into an existing group.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, member.GroupID); err != nil {
		return err
	}
	if err := s.insertMember(ctx, tx, member); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) insertMember(ctx context.Context, tx *sql.Tx, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.CreatedAt == 0 {
		member.CreatedAt = s.now().Unix()
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO members (id, group_id, name, email, preferred_currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID, member.GroupID, member.Name, member.Email, string(member.PreferredCurrency), member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// RemoveMember deletes a member who is not referenced by any expense.
func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID, memberID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var referenced bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM expenses WHERE group_id = ? AND paid_by = ?)
		     OR EXISTS (SELECT 1 FROM expense_participants WHERE member_id = ?)`,
		groupID, memberID, memberID,
	).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("failed to check member references: %w", err)
	}
	if referenced {
		return fmt.Errorf("%w: %s", storage.ErrMemberReferenced, memberID)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM members WHERE id = ? AND group_id = ?", memberID, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if err := requireAffected(res, "member", memberID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) listMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name, email, preferred_currency, created_at
		 FROM members WHERE group_id = ? ORDER BY rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		var preferred string
		if err := rows.Scan(&m.ID, &m.GroupID, &m.Name, &m.Email, &preferred, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.PreferredCurrency = currency.Code(preferred)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}
