package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/service"
	"github.com/mmynk/groupsplit/pkg/api"
)

func newSettleCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Compute balances and settlements for a group file",
		Long: `Reads a group in the same JSON shape GetGroup returns and prints every
member's balance with the transfers that settle the group. Use "-" to read
from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			group, err := readGroup(in)
			if err != nil {
				return err
			}

			table := currency.DefaultTable()
			for _, e := range group.Expenses {
				if err := calculator.ValidateSplit(e, table); err != nil {
					return fmt.Errorf("expense %s: %w", e.ID, err)
				}
			}

			result, err := calculator.CalculateGroup(group, table)
			if err != nil {
				return err
			}
			resp, err := service.BuildBalancesResponse(group, result, table)
			if err != nil {
				return err
			}

			printBalances(cmd.OutOrStdout(), group.Name, resp, table)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "group JSON file")
	return cmd
}

// readGroup decodes an api.Group document into the engine's model.
func readGroup(r io.Reader) (*models.Group, error) {
	var doc api.Group
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse group: %w", err)
	}
	if doc.BaseCurrency == "" {
		return nil, fmt.Errorf("group has no baseCurrency")
	}

	group := &models.Group{
		ID:           doc.ID,
		Name:         doc.Name,
		Description:  doc.Description,
		BaseCurrency: currency.Code(doc.BaseCurrency),
		CreatedAt:    doc.CreatedAt,
	}
	for _, m := range doc.Members {
		group.Members = append(group.Members, models.Member{
			ID:                m.ID,
			GroupID:           doc.ID,
			Name:              m.Name,
			Email:             m.Email,
			PreferredCurrency: currency.Code(m.PreferredCurrency),
		})
	}
	for i, e := range doc.Expenses {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("expense-%d", i+1)
		}
		method := models.SplitMethod(e.SplitMethod)
		if method == "" {
			method = models.SplitEqual
		}
		group.Expenses = append(group.Expenses, models.Expense{
			ID:           id,
			GroupID:      doc.ID,
			Description:  e.Description,
			Category:     e.Category,
			Amount:       e.Amount,
			Currency:     currency.Code(e.Currency),
			PaidBy:       e.PaidBy,
			Participants: e.Participants,
			SplitMethod:  method,
			CustomSplit:  e.CustomSplit,
		})
	}
	return group, nil
}
