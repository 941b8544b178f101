package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/speedrun-hq/zora-runner/pkg/config"
	"github.com/speedrun-hq/zora-runner/pkg/notify"
	"github.com/speedrun-hq/zora-runner/pkg/wallet"
)

func main() {
	var (
		walletsFile string
		proxiesFile string
		mode        string
		metricsPort string
	)

	// the batch runs until done or until SIGINT/SIGTERM
	runBatchCmd := func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if walletsFile != "" {
			cfg.WalletsFile = walletsFile
		}
		if proxiesFile != "" {
			cfg.ProxiesFile = proxiesFile
		}
		if mode != "" {
			if cfg.Mode, err = config.ParseMode(mode); err != nil {
				return err
			}
		}
		if metricsPort != "" {
			cfg.MetricsPort = metricsPort
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg)
	}

	rootCmd := &cobra.Command{
		Use:           "zora-runner",
		Short:         "Bridge ETH to Zora and mint NFTs for a batch of wallets",
		Long:          `zora-runner bridges ETH from Ethereum to Zora and mints an NFT from a Zora collection for every wallet of the batch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBatchCmd,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process every wallet of the batch (default)",
		RunE:  runBatchCmd,
	}

	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringVarP(&walletsFile, "wallets", "w", "", "Path to the wallets file (overrides WALLETS_FILE)")
		c.Flags().StringVarP(&proxiesFile, "proxies", "p", "", "Path to the proxies file (overrides PROXIES_FILE)")
		c.Flags().StringVarP(&mode, "mode", "m", "", "Workflow mode: bridge, mint or auto (overrides MODE)")
		c.Flags().StringVarP(&metricsPort, "metrics-port", "", "", "Port of the health and metrics server (overrides METRICS_PORT)")
	}

	var password string
	encryptCmd := &cobra.Command{
		Use:   "encrypt <private-key>...",
		Short: "Encrypt private keys for the wallets file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = config.GetEnvString("PASSWORD", "")
			}
			if password == "" {
				return fmt.Errorf("a password is required, use --password or PASSWORD")
			}
			for _, key := range args {
				encrypted, err := wallet.Encrypt(key, password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), encrypted)
			}
			return nil
		},
	}
	encryptCmd.Flags().StringVarP(&password, "password", "", "", "Encryption password (defaults to PASSWORD)")

	var botToken string
	chatIDCmd := &cobra.Command{
		Use:   "telegram-chat-id",
		Short: "Print the ids of the chats that wrote to the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if botToken == "" {
				botToken = config.GetEnvString("TELEGRAM_BOT_TOKEN", "")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			ids, err := notify.NewTelegram(botToken, "", nil).ChatIDs(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No chats found, send a message to the bot first")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	chatIDCmd.Flags().StringVarP(&botToken, "token", "t", "", "Bot token (defaults to TELEGRAM_BOT_TOKEN)")

	rootCmd.AddCommand(runCmd, encryptCmd, chatIDCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
