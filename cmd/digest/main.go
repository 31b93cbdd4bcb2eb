package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "digest",
		Short:         "WhatsApp Digest - parse chat exports and summarize them with Gemini",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (YAML)")

	rootCmd.AddCommand(messagesCmd(&configPath))
	rootCmd.AddCommand(analyzeCmd(&configPath))
	rootCmd.AddCommand(askCmd(&configPath))
	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(encryptCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
