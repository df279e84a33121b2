package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/config"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/discoverylog"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/gateway"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/store"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/tracker"
)

var (
	scanGuildID string
	scanAll     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Backfill channel history, then track live events until interrupted",
	Long: "Walks message history for the selected server(s), resuming from\n" +
		"stored cursors, then keeps running: it accepts live events from the\n" +
		"bridge and logs a heartbeat with the current identity count.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scanAll == (scanGuildID != "") {
			return fmt.Errorf("exactly one of --all or --guild is required")
		}
		return runScan(cmd.Context())
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanGuildID, "guild", "", "server id to scan")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "scan every reachable server")
}

func runScan(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(cfg.Paths.DatabaseFile)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := slog.Default().With("run", uuid.NewString())
	dlog := discoverylog.New(cfg.Paths.DiscoveryLog)
	rec := tracker.NewRecorder(st, dlog, logger)
	client := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token)
	walker := tracker.NewWalker(client, st, rec, logger, cfg.Scan.PageSize)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	live := tracker.NewLiveHandler(rec, logger)
	events := gateway.NewEventServer(cfg.Gateway.ListenAddr, cfg.Gateway.Token, live, logger)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- events.Run(ctx)
	}()
	go tracker.Heartbeat(ctx, st, cfg.Scan.HeartbeatInterval, logger)

	printHeader("usertracker scan")
	if scanAll {
		err = walker.ScanAll(ctx)
	} else {
		err = walker.ScanGroupID(ctx, scanGuildID)
	}
	if err != nil {
		stop()
		<-serverErr
		return err
	}
	logger.Info("backfill complete, tracking live events")

	<-ctx.Done()
	if err := <-serverErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
