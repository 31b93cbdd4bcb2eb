package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liao/wa-digest/internal/analyzer"
	"github.com/liao/wa-digest/internal/source"
)

func analyzeCmd(configPath *string) *cobra.Command {
	var flags filterFlags
	var mode string
	var reportPath string

	cmd := &cobra.Command{
		Use:   "analyze <export.txt|snapshot.html|export.enc>",
		Short: "Summarize a chat: key messages, links, schedules and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := analyzer.ParseMode(mode)
			if err != nil {
				return err
			}
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

			res, err := a.Summarize(cmd.Context(), src, m, opts)
			if err != nil {
				return warnEmpty(cmd, err)
			}

			if reportPath != "" && res.Report != nil {
				if err := res.Report.Save(reportPath); err != nil {
					return fmt.Errorf("save report: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Markdown)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", "summary", "summary, reminders (last 7 days by default) or structured")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the structured report as JSON to this path")
	return cmd
}

// warnEmpty 空结果打印提示并正常退出
func warnEmpty(cmd *cobra.Command, err error) error {
	if errors.Is(err, analyzer.ErrNoMessages) || errors.Is(err, analyzer.ErrNoRecentMessages) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		return nil
	}
	return err
}
