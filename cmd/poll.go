package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/annotation-relay/internal/adapters/relayclient"
	annotationsrender "github.com/bnema/annotation-relay/internal/adapters/render/annotations"
	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/filter"
	"github.com/spf13/cobra"
)

const defaultWatchInterval = time.Second

var errPollReplaced = errors.New("another client started polling this session")

func newPollCmd(app *app) *cobra.Command {
	var timeout time.Duration
	var output string

	cmd := &cobra.Command{
		Use:   "poll <session>",
		Short: "Wait once for annotations routed to a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			id := domain.SessionID(args[0])
			stderr := cmd.ErrOrStderr()

			var result relayclient.PollResponse
			err := runPollSpinner(cmd.Context(), stderr, app.isTerminal(stderr), fmt.Sprintf("Waiting for annotations on %s...", id), func(ctx context.Context) error {
				var pollErr error
				result, pollErr = app.client.Poll(ctx, id, app.pollTimeout(timeout))
				return pollErr
			})
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), output, result, func(w io.Writer) error {
				if len(result.Annotations) == 0 {
					_, err := fmt.Fprintf(w, "No annotations (%s)\n", result.Reason)
					return err
				}
				return app.writeAnnotations(w, result.Annotations, id)
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long the relay holds the poll (default: poll.default_timeout)")
	addOutputFlag(cmd, &output)

	return cmd
}

type watchOptions struct {
	where    string
	interval time.Duration
	timeout  time.Duration
	count    int
	output   string
}

func newWatchCmd(app *app) *cobra.Command {
	opts := watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <session>",
		Short: "Poll a session continuously and print annotations as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.output); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), app, domain.SessionID(args[0]), opts)
		},
	}

	cmd.Flags().StringVar(&opts.where, "where", "", `Only print annotations matching an expression, e.g. 'tag == "button"'`)
	cmd.Flags().DurationVar(&opts.interval, "interval", defaultWatchInterval, "Pause between polls")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "How long the relay holds each poll (default: poll.default_timeout)")
	cmd.Flags().IntVar(&opts.count, "count", 0, "Exit after printing this many annotations (0 = run until interrupted)")
	addOutputFlag(cmd, &opts.output)

	return cmd
}

// pollTimeout falls back to poll.default_timeout when no timeout was given.
func (a *app) pollTimeout(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return a.cfg.Poll.DefaultTimeout
}

func runWatch(ctx context.Context, w io.Writer, app *app, id domain.SessionID, opts watchOptions) error {
	var predicate *filter.Predicate
	if opts.where != "" {
		compiled, err := filter.Compile(opts.where)
		if err != nil {
			return err
		}
		predicate = compiled
	}

	printed := 0
	for {
		result, err := app.client.Poll(ctx, id, app.pollTimeout(opts.timeout))
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, domain.ErrSessionNotFound):
			return fmt.Errorf("watch session %s: %w", id, err)
		case err != nil:
			app.log.Error(err, "poll failed, retrying", "session", id)
		default:
			selected, err := predicate.Select(result.Annotations)
			if err != nil {
				return err
			}
			if err := app.emitBatch(w, opts.output, selected, id); err != nil {
				return err
			}
			printed += len(selected)

			switch result.Reason {
			case domain.PollReasonReplaced:
				return errPollReplaced
			case domain.PollReasonSessionExpired:
				return fmt.Errorf("watch session %s: %w", id, domain.ErrSessionNotFound)
			}
		}

		if opts.count > 0 && printed >= opts.count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.interval):
		}
	}
}

func (a *app) emitBatch(w io.Writer, format string, annotations []domain.Annotation, id domain.SessionID) error {
	if len(annotations) == 0 {
		return nil
	}
	return writeOutput(w, format, annotations, func(w io.Writer) error {
		return a.writeAnnotations(w, annotations, id)
	})
}

func (a *app) writeAnnotations(w io.Writer, annotations []domain.Annotation, id domain.SessionID) error {
	rendered, err := a.annotationRenderer(annotations, annotationsrender.RenderOptions{
		Now:       a.now(),
		SessionID: id,
	})
	if err != nil {
		return fmt.Errorf("render annotations: %w", err)
	}

	_, err = fmt.Fprintln(w, rendered)
	return err
}
