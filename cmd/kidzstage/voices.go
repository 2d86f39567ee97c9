package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

var voicesFlags struct {
	lang   string
	prefer string
	limit  int
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "Print the scored voice ranking for a language",
	Args:  cobra.NoArgs,
	RunE:  runVoices,
}

func init() {
	rootCmd.AddCommand(voicesCmd)
	voicesCmd.Flags().StringVar(&voicesFlags.lang, "lang", "en-IN", "BCP-47 language tag")
	voicesCmd.Flags().StringVar(&voicesFlags.prefer, "prefer", "female", "preferred gender: female, male or any")
	voicesCmd.Flags().IntVar(&voicesFlags.limit, "limit", 10, "number of voices to print, 0 for all")
}

func runVoices(cmd *cobra.Command, args []string) error {
	loader, log, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	eng := buildSpeech(loader.Config(), log)
	ranked, err := eng.Rank(cmd.Context(), voicesFlags.lang, domain.ParseGender(voicesFlags.prefer))
	if err != nil {
		return err
	}
	if voicesFlags.limit > 0 && len(ranked) > voicesFlags.limit {
		ranked = ranked[:voicesFlags.limit]
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SCORE", "VOICE", "LANGUAGE", "GENDER")
	for _, r := range ranked {
		t.Row(fmt.Sprintf("%.1f", r.Score), r.Voice.Name, r.Voice.Language, r.Voice.Gender.String())
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}
