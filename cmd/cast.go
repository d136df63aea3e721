package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neoluxis/gua4destiny/internal/divination"
	"github.com/neoluxis/gua4destiny/internal/draw"
	"github.com/neoluxis/gua4destiny/internal/fulltext"
	"github.com/neoluxis/gua4destiny/internal/gua"
)

func newCastCmd() *cobra.Command {
	var (
		withText bool
		svgPath  string
	)
	cmd := &cobra.Command{
		Use:   "cast",
		Short: "Cast a hexagram with the yarrow-stalk procedure",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCastCommand(cmd, withText, svgPath)
		},
	}
	cmd.Flags().BoolVar(&withText, "text", false, "also fetch the canonical full text")
	cmd.Flags().StringVar(&svgPath, "svg", "", "write an SVG rendering to this path")
	return cmd
}

func runCastCommand(cmd *cobra.Command, withText bool, svgPath string) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	engine := divination.NewEngine(divination.WithMethod(cfg.Divination.Method))
	lines, err := engine.CastHexagram()
	if err != nil {
		return fmt.Errorf("cast: %w", err)
	}
	h, err := gua.New(lines, gua.DefaultCategory())
	if err != nil {
		return fmt.Errorf("resolve hexagram: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (#%d, %s)\n", h.Name, h.Index, h.Pinyin)
	fmt.Fprintf(out, "binary: %s  value: %d\n", h.Binary, h.Value)
	for i := len(h.Lines) - 1; i >= 0; i-- {
		fmt.Fprintf(out, "  line %d: %s\n", i+1, h.Lines[i])
	}

	if svgPath != "" {
		if err := draw.Save(h, draw.DefaultLayout(), svgPath); err != nil {
			return err
		}
		logger.Info("wrote SVG", zap.String("path", svgPath))
	}

	if withText {
		texts, err := buildFulltextService(cfg, logger)
		if err != nil {
			return fmt.Errorf("init fulltext service: %w", err)
		}
		result, err := texts.FetchFullText(cmd.Context(), fulltext.Query{Index: h.Index}, true)
		if err != nil {
			return fmt.Errorf("fetch full text: %w", err)
		}
		fmt.Fprintf(out, "\n--- %s (%s) ---\n%s\n", result.SourceKey, result.SourceURL, result.Text)
	}
	return nil
}
