package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liao/wa-digest/internal/source"
)

func encryptCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "encrypt <export.txt> <export.enc>",
		Short: "Encrypt an export so it can be kept at rest and read with --decrypt-key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("DECRYPT_KEY")
			}
			if password == "" {
				return fmt.Errorf("--password or DECRYPT_KEY env is required")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}
			enc, err := source.Encrypt(data, password)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], enc, 0600); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "encrypted %d bytes to %s\n", len(data), args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "encryption password (or DECRYPT_KEY env)")
	return cmd
}
