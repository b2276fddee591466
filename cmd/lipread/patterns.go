package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newPatternsCmd() *cobra.Command {
	patternsCmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and clear trained patterns",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List trained patterns per word",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			patterns := openPatterns(cfg, afero.NewOsFs(), st, logger)
			entries := patterns.Entries()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No patterns trained yet. Start 'lipread run' and train a word.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WORD\t#\tHEIGHT\tWIDTH\tAREA")
			for _, e := range entries {
				for i, p := range e.Patterns {
					fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%.5f\n", e.Word, i+1, p.Height, p.Width, p.Area)
				}
			}
			return w.Flush()
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [word]",
		Short: "Delete every pattern of a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			patterns := openPatterns(cfg, afero.NewOsFs(), st, logger)
			word := args[0]
			n := patterns.Count(word)
			if !patterns.Remove(word) {
				return fmt.Errorf("no patterns for %q", word)
			}
			if err := patterns.Save(); err != nil {
				return fmt.Errorf("failed to save patterns: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d pattern(s) for %q\n", n, word)
			return nil
		},
	}

	patternsCmd.AddCommand(listCmd, clearCmd)
	return patternsCmd
}

func newVocabularyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocabulary",
		Short: "Show vocabulary words and training progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			patterns := openPatterns(cfg, afero.NewOsFs(), st, logger)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WORD\tSAMPLES\tSTATUS")
			for _, word := range patterns.Vocabulary().Words() {
				n := patterns.Count(word)
				status := "training"
				if n >= cfg.Training.TargetSamples {
					status = "ready"
				} else if n == 0 {
					status = "untrained"
				}
				fmt.Fprintf(w, "%s\t%d/%d\t%s\n", word, n, cfg.Training.TargetSamples, status)
			}
			return w.Flush()
		},
	}
}
