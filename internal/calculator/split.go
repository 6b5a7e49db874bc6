package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/models"
)

// SplitTolerance is how far custom shares may drift from summing to 1.
const SplitTolerance = 1e-4

var (
	// ErrInvalidSplit is returned when an expense's split rule can't be applied.
	ErrInvalidSplit = errors.New("invalid split")

	// ErrInvalidExpense is returned for malformed expenses (non-positive amount,
	// no participants, duplicate participants).
	ErrInvalidExpense = errors.New("invalid expense")

	// ErrDanglingReference is returned when an expense names a payer or
	// participant that is not a member of the group.
	ErrDanglingReference = errors.New("dangling member reference")
)

// Share is one participant's portion of an expense, in the expense's currency.
type Share struct {
	MemberID string
	Amount   float64
}

// CalculateShares splits an expense among its participants.
//
// Equal splits give every participant amount/len(participants), the payer
// included when they participate. Custom splits give amount*fraction; a
// participant missing from CustomSplit owes nothing. Shares come back in
// participant order.
func CalculateShares(expense models.Expense) ([]Share, error) {
	if len(expense.Participants) == 0 {
		return nil, fmt.Errorf("%w: expense %s has no participants", ErrInvalidSplit, expense.ID)
	}

	shares := make([]Share, len(expense.Participants))
	switch expense.SplitMethod {
	case models.SplitEqual:
		perPerson := expense.Amount / float64(len(expense.Participants))
		for i, p := range expense.Participants {
			shares[i] = Share{MemberID: p, Amount: perPerson}
		}
	case models.SplitCustom:
		for i, p := range expense.Participants {
			shares[i] = Share{MemberID: p, Amount: expense.Amount * expense.CustomSplit[p]}
		}
	default:
		return nil, fmt.Errorf("%w: unknown split method %q", ErrInvalidSplit, expense.SplitMethod)
	}
	return shares, nil
}

// ValidateCustomSplit checks that every fraction is in [0, 1], belongs to
// a participant, and that the fractions sum to 1 within SplitTolerance.
func ValidateCustomSplit(participants []string, split map[string]float64) error {
	if len(split) == 0 {
		return fmt.Errorf("%w: custom split has no shares", ErrInvalidSplit)
	}

	isParticipant := make(map[string]bool, len(participants))
	for _, p := range participants {
		isParticipant[p] = true
	}

	sum := decimal.Zero
	for id, share := range split {
		if !isParticipant[id] {
			return fmt.Errorf("%w: share for %q who is not a participant", ErrInvalidSplit, id)
		}
		if share < 0 || share > 1 || math.IsNaN(share) {
			return fmt.Errorf("%w: share for %q is %v, must be between 0 and 1", ErrInvalidSplit, id, share)
		}
		sum = sum.Add(decimal.NewFromFloat(share))
	}

	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(decimal.NewFromFloat(SplitTolerance)) {
		return fmt.Errorf("%w: shares sum to %s, must sum to 1", ErrInvalidSplit, sum.String())
	}
	return nil
}

// CurrencyValidator resolves currency codes. *currency.Table implements it.
type CurrencyValidator interface {
	Validate(code string) (currency.Code, error)
}

// ValidateExpense runs the checks the write path needs before an expense
// is stored. The balance engine itself trusts its input and never calls it.
func ValidateExpense(expense models.Expense, members []models.Member, currencies CurrencyValidator) error {
	if err := ValidateSplit(expense, currencies); err != nil {
		return err
	}

	isMember := make(map[string]bool, len(members))
	for _, m := range members {
		isMember[m.ID] = true
	}
	if !isMember[expense.PaidBy] {
		return fmt.Errorf("%w: payer %q", ErrDanglingReference, expense.PaidBy)
	}
	for _, p := range expense.Participants {
		if !isMember[p] {
			return fmt.Errorf("%w: participant %q", ErrDanglingReference, p)
		}
	}
	return nil
}

// ValidateSplit checks an expense on its own: a positive amount in a known
// currency, distinct participants and an applicable split rule. Membership
// is left to ValidateExpense so callers reading stored groups can still
// skip dangling references.
func ValidateSplit(expense models.Expense, currencies CurrencyValidator) error {
	if !(expense.Amount > 0) || math.IsInf(expense.Amount, 0) {
		return fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidExpense, expense.Amount)
	}
	if _, err := currencies.Validate(string(expense.Currency)); err != nil {
		return err
	}
	if len(expense.Participants) == 0 {
		return fmt.Errorf("%w: at least one participant is required", ErrInvalidExpense)
	}

	seen := make(map[string]bool, len(expense.Participants))
	for _, p := range expense.Participants {
		if seen[p] {
			return fmt.Errorf("%w: participant %q listed twice", ErrInvalidExpense, p)
		}
		seen[p] = true
	}

	switch expense.SplitMethod {
	case models.SplitEqual:
		if len(expense.CustomSplit) > 0 {
			return fmt.Errorf("%w: custom shares given for an equal split", ErrInvalidSplit)
		}
		return nil
	case models.SplitCustom:
		return ValidateCustomSplit(expense.Participants, expense.CustomSplit)
	default:
		return fmt.Errorf("%w: unknown split method %q", ErrInvalidSplit, expense.SplitMethod)
	}
}
