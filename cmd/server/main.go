package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"telecom-chat/internal/config"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatbox",
		Short: "Chatbox API - telecom data assistant",
		Long: `Serves a token-protected HTTP API that answers natural-language questions
about telecom data with a locally served language model.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}

	initDBCmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the record tables",
		Args:  cobra.NoArgs,
		RunE:  runInitDB,
	}

	rootCmd.AddCommand(serveCmd, newHashCommand(), initDBCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newHashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for the credential table",
		Long:  `Reads a password from the terminal without echo (or from stdin when piped) and prints its bcrypt hash.`,
		Args:  cobra.NoArgs,
		RunE:  runHashPassword,
	}
	cmd.Flags().Int("cost", 12, "bcrypt cost")
	return cmd
}

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
