package main

import (
	"fmt"

	"github.com/kyuwon-dev/kisengine/internal/config"
	"github.com/kyuwon-dev/kisengine/internal/journal"
	"github.com/spf13/cobra"
)

var journalDate string

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List or replay recorded decision journals",
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().StringVar(&journalDate, "date", "", "date to replay (YYYY-MM-DD); omit to list available dates")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is not enabled in %s", cfgFile)
	}

	store, err := archiveStorage(cfg.Journal)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	ctx := cmd.Context()

	if journalDate == "" {
		dates, err := journal.ListDates(ctx, cfg.Journal.Dir, store)
		if err != nil {
			return err
		}
		for _, date := range dates {
			fmt.Println(date)
		}
		return nil
	}

	entries, err := journal.ReadDate(ctx, cfg.Journal.Dir, store, journalDate)
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s %s %-6s", e.Timestamp.Format("15:04:05"), e.CycleID, e.Kind)
		if e.Rule != "" {
			line += " rule=" + e.Rule
		}
		if e.Intent != nil {
			line += fmt.Sprintf(" %s %s x%d", e.Intent.Side, e.Intent.StockCode, e.Intent.Quantity)
		}
		if e.Error != "" {
			line += " error=" + e.Error
		}
		fmt.Println(line)
	}
	return nil
}
