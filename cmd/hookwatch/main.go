package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/hookwatch/internal/client"
	"github.com/alfredjeanlab/hookwatch/internal/ui"
)

var (
	serverURL  string
	authToken  string
	jsonOutput bool
	noColor    bool

	apiClient client.Client
)

func defaultServerURL() string {
	if s := os.Getenv("HOOKWATCH_URL"); s != "" {
		return s
	}
	return "http://localhost:5000"
}

var rootCmd = &cobra.Command{
	Use:           "hookwatch <command>",
	Short:         "Webhook ingestion, live dashboard feed and relay",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Configure(noColor)
		apiClient = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if apiClient != nil {
			apiClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultServerURL(), "hookwatch server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("HOOKWATCH_AUTH_TOKEN"), "bearer token for /api routes")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "services", Title: "Services:"},
		&cobra.Group{ID: "query", Title: "Query:"},
	)

	// Services
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(exportCmd)

	// Query
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(postCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
