package cmd

import (
	"fmt"
	"io"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/spf13/cobra"
)

func newSubmitCmd(app *app) *cobra.Command {
	var element domain.Element
	var output string

	cmd := &cobra.Command{
		Use:   "submit <url> <note>",
		Short: "Send an annotation as the browser extension would",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			element.URL = args[0]
			result, err := app.client.Submit(cmd.Context(), args[1], element)
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), output, result, func(w io.Writer) error {
				if !result.Delivered {
					_, err := fmt.Fprintf(w, "Annotation %s archived; no session routes %s\n", result.ID, args[0])
					return err
				}
				_, err := fmt.Fprintf(w, "Annotation %s delivered to session %s\n", result.ID, result.SessionID)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&element.Selector, "selector", "", "CSS selector of the annotated element")
	cmd.Flags().StringVar(&element.TagName, "tag", "", "Tag name of the annotated element")
	cmd.Flags().StringVar(&element.InnerText, "text", "", "Visible text of the annotated element")
	addOutputFlag(cmd, &output)

	return cmd
}
