package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var postCmd = &cobra.Command{
	Use:   "post <route> [file]",
	Short: "Send a JSON payload to a webhook receiver",
	Long: `Send a JSON payload to one of the webhook receivers (report-source,
admin-source, catch-all). The body is read from file, or from stdin when
file is omitted or "-".`,
	GroupID: "query",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 2 && args[1] != "-" {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		body, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}

		if err := apiClient.PostWebhook(context.Background(), args[0], body); err != nil {
			return fmt.Errorf("posting webhook: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "received")
		return nil
	},
}
