package cmd

import (
	"io"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/spf13/cobra"
)

func newArchiveCmd(app *app) *cobra.Command {
	var sessionID string
	var limit int
	var output string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List archived annotations, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			id := domain.SessionID(sessionID)
			annotations, err := app.client.Archived(cmd.Context(), id, limit)
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), output, annotations, func(w io.Writer) error {
				return app.writeAnnotations(w, annotations, id)
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Only annotations routed to this session")
	cmd.Flags().IntVar(&limit, "limit", 0, "Only the most recent N annotations (0 = all)")
	addOutputFlag(cmd, &output)

	return cmd
}
