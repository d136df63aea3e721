package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neoluxis/gua4destiny/internal/fulltext"
)

func newTextCmd() *cobra.Command {
	var (
		name    string
		index   int
		pinyin  string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "text",
		Short: "Fetch the canonical full text for a hexagram",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTextCommand(cmd, fulltext.Query{Name: name, Index: index, Pinyin: pinyin}, !noCache)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "hexagram name (simplified script)")
	cmd.Flags().IntVar(&index, "index", 0, "King Wen index, 1..64")
	cmd.Flags().StringVar(&pinyin, "pinyin", "", "romanization slug")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the local cache")
	return cmd
}

func runTextCommand(cmd *cobra.Command, q fulltext.Query, useCache bool) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	texts, err := buildFulltextService(cfg, logger)
	if err != nil {
		return fmt.Errorf("init fulltext service: %w", err)
	}
	result, err := texts.FetchFullText(cmd.Context(), q, useCache)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source: %s (%s, cache_hit=%t)\n\n", result.SourceKey, result.SourceURL, result.CacheHit)
	fmt.Fprintln(out, result.Text)
	return nil
}
