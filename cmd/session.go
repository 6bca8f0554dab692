package cmd

import (
	"fmt"
	"io"
	"strings"

	sessionsrender "github.com/bnema/annotation-relay/internal/adapters/render/sessions"
	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/spf13/cobra"
)

type registerOutput struct {
	SessionID domain.SessionID `json:"sessionId"`
	Linked    []string         `json:"linked,omitempty"`
}

type findOutput struct {
	Session *domain.SessionSummary `json:"session"`
}

func newRegisterCmd(app *app) *cobra.Command {
	var consumerID string
	var sessionID string
	var links []string
	var output string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a session and optionally claim URL prefixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			var id domain.SessionID
			var err error
			if strings.TrimSpace(sessionID) != "" {
				id, err = app.client.Create(cmd.Context(), consumerID, sessionID)
			} else {
				id, err = app.client.Register(cmd.Context(), consumerID)
			}
			if err != nil {
				return err
			}

			for _, prefix := range links {
				if err := app.client.LinkURL(cmd.Context(), id, prefix); err != nil {
					return err
				}
			}

			result := registerOutput{SessionID: id, Linked: links}
			return writeOutput(cmd.OutOrStdout(), output, result, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, id)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&consumerID, "consumer", "cli", "Consumer identifier recorded on the session")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Request a specific session id instead of a generated one")
	cmd.Flags().StringSliceVar(&links, "link", nil, "URL prefix to claim right away (repeatable)")
	addOutputFlag(cmd, &output)

	return cmd
}

func newLinkCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <session> <url-prefix>",
		Short: "Claim a URL prefix for a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.SessionID(args[0])
			if err := app.client.LinkURL(cmd.Context(), id, args[1]); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Linked %s to session %s\n", args[1], id)
			return err
		},
	}
}

func newFindCmd(app *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "find <url>",
		Short: "Show which session a URL routes to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			summary, found, err := app.client.FindByURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result := findOutput{}
			if found {
				result.Session = &summary
			}
			return writeOutput(cmd.OutOrStdout(), output, result, func(w io.Writer) error {
				if !found {
					_, err := fmt.Fprintf(w, "No session routes %s\n", args[0])
					return err
				}
				return writeSessionDetail(w, summary)
			})
		},
	}

	addOutputFlag(cmd, &output)
	return cmd
}

func newSessionCmd(app *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "session <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			summary, err := app.client.Get(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), output, summary, func(w io.Writer) error {
				return writeSessionDetail(w, summary)
			})
		},
	}

	addOutputFlag(cmd, &output)
	return cmd
}

func newSessionsCmd(app *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List live sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			sessions, err := app.client.Sessions(cmd.Context())
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), output, sessions, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, app.sessionRenderer(sessions, sessionsrender.RenderOptions{
					Now:        app.now(),
					StaleAfter: app.cfg.Reaper.StaleAfter,
				}))
				return err
			})
		},
	}

	addOutputFlag(cmd, &output)
	return cmd
}

func writeSessionDetail(w io.Writer, summary domain.SessionSummary) error {
	prefixes := "(none)"
	if len(summary.URLPrefixes) > 0 {
		prefixes = strings.Join(summary.URLPrefixes, ", ")
	}
	consumer := summary.ConsumerID
	if consumer == "" {
		consumer = "-"
	}

	_, err := fmt.Fprintf(w,
		"Session:       %s\nConsumer:      %s\nURL prefixes:  %s\nPending:       %d\nCreated:       %s\nLast activity: %s\n",
		summary.ID,
		consumer,
		prefixes,
		summary.PendingCount,
		summary.CreatedAt.Format("2006-01-02 15:04:05"),
		summary.LastActivityAt.Format("2006-01-02 15:04:05"),
	)
	return err
}
