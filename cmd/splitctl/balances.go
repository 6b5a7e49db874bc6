package main

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/pkg/api"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
)

func newBalancesCmd() *cobra.Command {
	var server string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "balances <group-id>",
		Short: "Show balances and settlements of a group on a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			httpClient := &http.Client{Timeout: timeout}
			client := apiconnect.NewGroupServiceClient(httpClient, server)
			ctx := cmd.Context()

			group, err := client.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: args[0]}))
			if err != nil {
				return err
			}
			resp, err := client.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: args[0]}))
			if err != nil {
				return err
			}

			// The server already formatted everything; the local table only
			// renders per-currency lines.
			printBalances(cmd.OutOrStdout(), group.Msg.Group.Name, resp.Msg, currency.DefaultTable())
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "groupsplit server URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}
