package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursemate/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ephemeral, _ := cmd.Flags().GetBool("ephemeral")
		sess, err := openSession(cmd, ephemeral)
		if err != nil {
			return err
		}
		defer sess.Close()

		addr := sess.cfg.Server.Addr
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}

		api := httpapi.New(sess.svc, httpapi.Options{
			RequestTimeout: sess.cfg.Server.RequestTimeout.Duration,
			CORSOrigins:    sess.cfg.Server.CORSOrigins,
			Logger:         slog.Default(),
		})
		srv := &http.Server{
			Addr:              addr,
			Handler:           api,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if dir, _ := cmd.Flags().GetString("watch"); dir != "" {
			go func() {
				if err := sess.svc.Ingester().Watch(ctx, dir, nil); err != nil {
					slog.Error("watcher stopped", "dir", dir, "error", err)
				}
			}()
		}

		errc := make(chan error, 1)
		go func() {
			slog.Info("server starting", "addr", addr)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Bool("ephemeral", false, "Keep the vector index in memory only")
	serveCmd.Flags().String("watch", "", "Also ingest new files dropped into this directory")
}
