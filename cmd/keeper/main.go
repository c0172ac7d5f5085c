package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "keeper",
		Short:        "Concentrated-liquidity position keeper",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newOpenCmd())
	root.AddCommand(newIncreaseCmd())
	root.AddCommand(newDecreaseCmd())
	root.AddCommand(newCollectCmd())
	root.AddCommand(newStatusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().String("private-key", "", "hex private key for signing")
	cmd.Flags().String("token0", "", "reserve token0 address")
	cmd.Flags().String("token1", "", "reserve token1 address")
	cmd.Flags().Uint32("fee", 3000, "pool fee tier")
	cmd.Flags().String("factory", "", "factory address")
	cmd.Flags().String("registry", "", "position manager address")
	cmd.Flags().String("notify-out", "./data/notifications.jsonl", "notification JSONL path")
	cmd.Flags().String("pg-dsn", "", "optional Postgres DSN for notifications")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
