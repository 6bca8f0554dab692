package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "relay",
		Short:         "Annotation relay: route browser annotations to assistant sessions",
		Long:          "relay runs a local HTTP relay that routes element annotations captured in the browser to the assistant session that claimed the page's URL, and offers client commands to register sessions, long-poll for annotations and inspect the archive.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		rootCmd.AddCommand(newVersionCmd())
		return rootCmd
	}

	rootCmd.PersistentFlags().StringVar(&app.client.BaseURL, "server", app.client.BaseURL, "Relay URL used by client commands (client.server_url)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newRegisterCmd(app),
		newLinkCmd(app),
		newFindCmd(app),
		newSessionCmd(app),
		newSessionsCmd(app),
		newPollCmd(app),
		newWatchCmd(app),
		newSubmitCmd(app),
		newArchiveCmd(app),
	)

	return rootCmd
}
