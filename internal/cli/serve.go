package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerbook/internal/remote"
)

// shutdownTimeout bounds the graceful stop of the slot server.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the slot serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewSlotCommand creates the slot command group.
func NewSlotCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Host remote backup slots",
	}
	cmd.AddCommand(NewServeCommand(rootOpts))
	return cmd
}

// NewServeCommand creates the slot serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one backup slot per identity over HTTP",
		Long: `Serve backup slots over HTTP, one per bearer identity, stored in the
local database. Point LEDGERBOOK_REMOTE_URL of another installation at this
server to use it for cloud upload and download.

Example:
  ledgerbook slot serve --db ./slots.db --addr :8420`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default LEDGERBOOK_LISTEN_ADDR)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := opts.Addr
	if addr == "" {
		addr = a.cfg.ListenAddr
	}
	srv := remote.NewServer(a.store, a.logger, remote.DefaultServerConfig())

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	a.logger.Info().Str("addr", addr).Str("db", a.cfg.DBPath).Msg("slot server starting")
	fmt.Fprintf(cmd.OutOrStdout(), "Slot server listening on %s\n", addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	select {
	case err := <-errCh:
		if err != nil {
			return setupError(a.out, "slot server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "slot server shutdown", err)
	}
	if err := <-errCh; err != nil {
		return WrapExitError(ExitFailure, "slot server error", err)
	}

	a.logger.Info().Msg("slot server stopped gracefully")
	return nil
}
