package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liao/wa-digest/internal/source"
)

func askCmd(configPath *string) *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "ask <export.txt> [question]",
		Short: "Answer questions about a chat; reads questions from stdin when none is given",
		Args:  cobra.MinimumNArgs(1),
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
			a, err := newAnalyzer(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ask := func(q string) error {
				ans, err := a.Ask(cmd.Context(), src, q, opts)
				if err != nil {
					return warnEmpty(cmd, err)
				}
				fmt.Fprintln(out, ans.Text)
				return nil
			}

			if len(args) > 1 {
				return ask(strings.Join(args[1:], " "))
			}

			// 交互模式：每行一个问题，一次只发一个请求
			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(out, "> ")
			for scanner.Scan() {
				if q := strings.TrimSpace(scanner.Text()); q != "" {
					if err := ask(q); err != nil {
						return err
					}
				}
				fmt.Fprint(out, "> ")
			}
			return scanner.Err()
		},
	}
	flags.register(cmd)
	return cmd
}
