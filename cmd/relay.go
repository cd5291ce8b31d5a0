package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	chtelegram "relaybot/pkg/channel/telegram"
	"relaybot/pkg/config"
	"relaybot/pkg/dispatch"
	"relaybot/pkg/filter"
	"relaybot/pkg/logger"
	"relaybot/pkg/operator"
	"relaybot/pkg/registry"
	"relaybot/pkg/relay"
	"relaybot/pkg/scheduler"
	"relaybot/pkg/stats"
	"relaybot/pkg/store"
	trtelegram "relaybot/pkg/transport/telegram"

	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the relay engine",
	Long:  "Starts the Telegram listener, the per-pairing batch scheduler, and the operator command interface.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		// Optional; the original deployment carried its settings in .env.
		_ = godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.relay")

		fileStore, err := store.NewFileStore(cfg.Relay.StateFile)
		if err != nil {
			log.Error("Invalid state file path", "error", err)
			return
		}
		doc, err := fileStore.Load()
		if err != nil {
			log.Error("Failed to load state", "path", cfg.Relay.StateFile, "error", err)
			return
		}
		state, err := store.NewState(doc, fileStore)
		if err != nil {
			log.Error("Failed to initialize state", "error", err)
			return
		}

		reg := registry.New(state, appLogger)
		if err := reg.EnsureAdmins(cfg.Relay.Admins); err != nil {
			log.Error("Failed to seed admins", "error", err)
			return
		}

		bot, err := telego.NewBot(strings.TrimSpace(cfg.Telegram.Token))
		if err != nil {
			log.Error("Failed to initialize telegram bot", "error", err)
			return
		}

		client, err := trtelegram.NewClient(bot, reg.Admins, appLogger)
		if err != nil {
			log.Error("Failed to initialize telegram transport", "error", err)
			return
		}

		filt := filter.NewEngine(state, appLogger)
		recorder := stats.NewRecorder(state, appLogger)
		dispatcher := dispatch.New(client, client, client, reg, recorder, appLogger)

		// The scheduler gets a background context so an in-flight flush is
		// never cancelled by shutdown; Close waits for it instead.
		sched := scheduler.New(context.Background(), cfg.Relay.Window(), dispatcher, appLogger)

		svc, err := relay.NewService(reg, filt, sched, appLogger)
		if err != nil {
			log.Error("Failed to initialize relay service", "error", err)
			return
		}

		listener, err := chtelegram.NewListener(bot, appLogger)
		if err != nil {
			log.Error("Failed to initialize telegram listener", "error", err)
			return
		}

		commands := operator.New(reg, filt, recorder, client, client, appLogger)

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("Relay starting", "pairings", len(reg.All()), "debounce", cfg.Relay.Window(), "state_file", cfg.Relay.StateFile)
		if err := svc.Run(runCtx, listener, commands.Handle); err != nil {
			log.Error("Relay runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
}
