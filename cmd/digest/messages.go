package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liao/wa-digest/internal/analyzer"
	"github.com/liao/wa-digest/internal/parser"
	"github.com/liao/wa-digest/internal/source"
)

func messagesCmd(configPath *string) *cobra.Command {
	var flags filterFlags
	var count bool

	cmd := &cobra.Command{
		Use:   "messages <export.txt>",
		Short: "Parse, filter and sort an export and print the kept lines (no model call)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			opts, err := flags.options(cmd, cfg)
			if err != nil {
				return err
			}
			src, err := source.Open(args[0], flags.password())
			if err != nil {
				return err
			}

			p, err := analyzer.Prepare(cmd.Context(), src, opts)
			if err != nil {
				return warnEmpty(cmd, err)
			}

			out := cmd.OutOrStdout()
			if count {
				first, last := parser.DateBounds(p.Messages)
				fmt.Fprintf(out, "%d messages, %s .. %s\n", len(p.Messages),
					first.Format(analyzer.DateLayout), last.Format(analyzer.DateLayout))
				return nil
			}
			fmt.Fprintln(out, p.Transcript)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&count, "count", false, "print only the number of messages and their date span")
	return cmd
}
