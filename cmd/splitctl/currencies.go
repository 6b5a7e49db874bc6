package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/groupsplit/internal/currency"
)

func newCurrenciesCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "currencies",
		Short: "List supported currencies and their USD rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != "" && kind != string(currency.Fiat) && kind != string(currency.Crypto) {
				return fmt.Errorf("unknown kind %q, want fiat or crypto", kind)
			}

			w := cmd.OutOrStdout()
			for _, c := range currency.DefaultTable().Currencies(currency.Kind(kind)) {
				fmt.Fprintf(w, "%-5s %-6s %-18s %s\n", bold.Sprint(c.Code), c.Kind, c.Name, faint.Sprintf("1 %s = %g USD", c.Code, c.Rate))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only list fiat or crypto currencies")
	return cmd
}
