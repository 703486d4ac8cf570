package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursemate/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest PDF or text files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer sess.Close()

		failed := 0
		for _, path := range args {
			res, err := sess.svc.Ingester().IngestFile(cmd.Context(), path)
			switch {
			case err != nil:
				failed++
				fmt.Printf("%-40s  error: %v\n", path, err)
			case res.Rejected != "":
				failed++
				fmt.Printf("%-40s  rejected: %s\n", path, res.Rejected)
			default:
				fmt.Printf("%-40s  %s  (%d chunks)\n", path, res.DocumentID, res.ChunkCount)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files not ingested", failed, len(args))
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest new .pdf and .txt files as they appear in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return sess.svc.Ingester().Watch(ctx, args[0], func(path string, res *ingest.Result, err error) {
			if err == nil && res.Rejected == "" {
				fmt.Printf("%s  %s  (%d chunks)\n", path, res.DocumentID, res.ChunkCount)
			}
			slog.Debug("watch event handled", "path", path)
		})
	},
}
