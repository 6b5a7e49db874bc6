// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/groupsplit/internal/models"
)

var (
	// ErrNotFound is returned when a group, member or expense does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMemberReferenced is returned when removing a member that an
	// expense still names as payer or participant.
	ErrMemberReferenced = errors.New("member is referenced by an expense")
)

// Store defines the interface for group ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateGroup persists a new group together with any members in
	// group.Members. IDs and CreatedAt are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members and expenses, both in
	// insertion order. Returns ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups returns all groups without members or expenses, newest first.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// DeleteGroup removes a group and everything in it.
	DeleteGroup(ctx context.Context, groupID string) error

	// AddMember adds a member to an existing group.
	AddMember(ctx context.Context, member *models.Member) error

	// RemoveMember removes a member. Returns ErrMemberReferenced if any
	// expense still refers to them.
	RemoveMember(ctx context.Context, groupID, memberID string) error

	// AddExpense persists an expense with its participants and custom shares.
	AddExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense removes an expense from a group.
	DeleteExpense(ctx context.Context, groupID, expenseID string) error

	// RecordActivity appends an entry to the activity log.
	RecordActivity(ctx context.Context, activity *models.Activity) error

	// ListActivity returns up to limit entries, newest first, skipping offset.
	ListActivity(ctx context.Context, limit, offset int) ([]*models.Activity, error)

	// Stats aggregates counts and totals for the admin area.
	Stats(ctx context.Context) (*models.Stats, error)

	// Close releases any resources held by the store.
	Close() error
}
