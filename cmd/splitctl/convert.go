package main

import (
	"fmt"

	"github.com/alfredxing/calc/compute"
	"github.com/spf13/cobra"

	"github.com/mmynk/groupsplit/internal/currency"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between currencies",
		Long: `Converts an amount using the built-in rates. The amount may be an
arithmetic expression such as "120/3" or "(12.5+7.5)*2".`,
		Example: `  splitctl convert 100 EUR USD
  splitctl convert "240/3" GBP JPY`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := compute.Evaluate(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}

			table := currency.DefaultTable()
			from, err := table.Validate(args[1])
			if err != nil {
				return err
			}
			to, err := table.Validate(args[2])
			if err != nil {
				return err
			}

			converted, err := table.Convert(amount, from, to)
			if err != nil {
				return err
			}

			src, err := table.Format(amount, from)
			if err != nil {
				return err
			}
			dst, err := table.Format(converted, to)
			if err != nil {
				return err
			}
			if amount < 0 {
				src, dst = "-"+src, "-"+dst
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", src, bold.Sprint(dst))
			return nil
		},
	}
}
