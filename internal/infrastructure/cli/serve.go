package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/prathap024-ctrl/pdf-rag/internal/app"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/usecases"
)

var (
	serveInbox string
	servePort  int
	watchQuiet bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Runs the HTTP API. With --inbox (or inbox.dir) PDFs created in that
directory are ingested as well. When reconcile.schedule is set, orphaned
collections are cleaned up on that cron schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest PDFs as they are dropped into a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	serveCmd.Flags().StringVar(&serveInbox, "inbox", "", "directory to watch for new PDFs")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "server port (overrides server.port)")
	watchCmd.Flags().BoolVarP(&watchQuiet, "quiet", "q", false, "do not print ingested files")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveInbox != "" {
		cfg.Inbox.Dir = serveInbox
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Reconcile.Schedule != "" {
		sched := a.NewScheduler()
		if err := sched.Start(cfg.Reconcile.Schedule); err != nil {
			return fmt.Errorf("invalid reconcile.schedule: %w", err)
		}
		defer sched.Stop()
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return a.NewServer().Start(ctx)
	})
	if cfg.Inbox.Dir != "" {
		g.Go(func() error {
			return watchInbox(ctx, cmd, a, cfg.Inbox.Dir, false)
		})
	}

	cmd.Printf("%s on http://%s\n", okColor("serving"), cfg.Server.Addr())
	return g.Wait()
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := cfg.Inbox.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no directory given and inbox.dir is not set")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cmd.Printf("%s %s (Ctrl+C to stop)\n", okColor("watching"), dir)
	return watchInbox(cmd.Context(), cmd, a, dir, watchQuiet)
}

func watchInbox(ctx context.Context, cmd *cobra.Command, a *app.App, dir string, quiet bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating inbox: %w", err)
	}

	inbox, err := a.NewInboxWatcher()
	if err != nil {
		return err
	}
	return inbox.Run(ctx, dir, func(result usecases.IngestResult) {
		if quiet {
			return
		}
		cmd.Printf("%s #%d %s (%d chunks)\n", okColor("ingested"), result.Document.ID, result.Document.Filename, result.Chunks)
	})
}
