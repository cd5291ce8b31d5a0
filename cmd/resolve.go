package cmd

import (
	"context"
	"fmt"
	"strings"

	"relaybot/pkg/config"
	trtelegram "relaybot/pkg/transport/telegram"

	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <@handle|id>",
	Short: "Resolve a channel handle to its canonical id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		bot, err := telego.NewBot(strings.TrimSpace(cfg.Telegram.Token))
		if err != nil {
			fmt.Printf("failed to initialize telegram bot: %v\n", err)
			return
		}

		client, err := trtelegram.NewClient(bot, nil, nil)
		if err != nil {
			fmt.Printf("failed to initialize transport: %v\n", err)
			return
		}

		id, err := client.Resolve(context.Background(), args[0])
		if err != nil {
			fmt.Printf("failed to resolve %s: %v\n", args[0], err)
			return
		}

		fmt.Println(id)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
