package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/pkg/api"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	faint = color.New(color.Faint)
)

// printBalances writes one line per member followed by the settlements.
func printBalances(w io.Writer, name string, resp *api.GetGroupBalancesResponse, table *currency.Table) {
	bold.Fprintf(w, "%s", name)
	fmt.Fprintf(w, " (base %s)\n\n", resp.BaseCurrency)

	width := 0
	for _, b := range resp.Balances {
		width = max(width, len(b.Member.Name))
	}

	for _, b := range resp.Balances {
		fmt.Fprintf(w, "  %-*s  ", width, b.Member.Name)
		switch calculator.Standing(b.Status) {
		case calculator.GetsBack:
			green.Fprintf(w, "%-9s", "gets back")
		case calculator.Owes:
			red.Fprintf(w, "%-9s", "owes")
		default:
			faint.Fprintf(w, "%-9s", "settled")
		}
		fmt.Fprintf(w, "  %s\n", b.FormattedTotal)

		for _, c := range b.Currencies {
			net, err := table.Format(c.Net, currency.Code(c.Currency))
			if err != nil {
				net = fmt.Sprintf("%.2f %s", c.Net, c.Currency)
			}
			sign := "+"
			if c.Net < 0 {
				sign = "-"
			}
			faint.Fprintf(w, "  %-*s    %s%s\n", width, "", sign, net)
		}
	}

	fmt.Fprintln(w)
	if resp.SettledUp {
		green.Fprintln(w, "Everyone is settled up.")
	} else {
		bold.Fprintln(w, "Settlements:")
		for _, s := range resp.Settlements {
			fmt.Fprintf(w, "  %s\n", s.Formatted)
		}
	}

	for _, ref := range resp.SkippedReferences {
		red.Fprintf(w, "warning: expense %s names unknown %s %s\n", ref.ExpenseID, ref.Role, ref.MemberID)
	}
}
