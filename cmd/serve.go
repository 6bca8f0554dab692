package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the annotation relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, app, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default: server.listen)")

	return cmd
}

func runServe(ctx context.Context, app *app, listen string) error {
	srv, err := app.wireServer(listen)
	if err != nil {
		return err
	}

	if _, err := srv.relay.Restore(ctx); err != nil {
		app.log.Error(err, "starting with no sessions")
	}

	if listen == "" {
		listen = app.cfg.Server.Listen
	}
	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return errors.Join(fmt.Errorf("listen: %w", err), srv.close())
	}

	srv.reaper.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.http.Serve(listener)
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		app.log.Info("shutdown signal received, stopping")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	// Resolve parked polls first so in-flight long polls do not hold up the
	// HTTP shutdown.
	errs := []error{err}
	if closeErr := srv.relay.Close(shutdownCtx); closeErr != nil {
		errs = append(errs, closeErr)
	}
	if shutdownErr := srv.http.Shutdown(shutdownCtx); shutdownErr != nil {
		errs = append(errs, shutdownErr)
	}
	srv.reaper.Stop()
	errs = append(errs, srv.close())

	if joined := errors.Join(errs...); joined != nil {
		return joined
	}

	app.log.Info("shutdown complete")
	return nil
}
