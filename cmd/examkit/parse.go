package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/blocks"
	"github.com/examkit/examkit/internal/config"
	"github.com/examkit/examkit/internal/engine"
	"github.com/examkit/examkit/internal/home"
)

var (
	parseName      string
	parseFirstPage int
	parseLastPage  int
	parseOutputDir string
	parseRawBlocks bool
	parseSummary   bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <pdf>",
	Short: "Parse an exam PDF without a server",
	Long: `Parse an exam PDF in one shot and write JSON artifacts.

This runs the full pipeline synchronously: block extraction, question
structuring, and validation. Output goes to the configured output
directory as {exam}_parsed.json and {exam}_validation.json.

Examples:
  examkit parse exam.pdf
  examkit parse exam.pdf --pages 10-50 --out ./results
  examkit parse exam.pdf --summary           # print validation only`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfgPath := cfgFile
		if cfgPath == "" && h.ConfigExists() {
			cfgPath = h.ConfigPath()
		}
		cfgMgr, err := config.NewManager(cfgPath)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		outDir := parseOutputDir
		if outDir == "" {
			outDir = cfg.Output.Dir
		}
		rawBlocks := parseRawBlocks || cfg.Output.RawBlocks

		result, err := engine.Parse(cmd.Context(), engine.Request{
			PDFPath:   args[0],
			ExamName:  parseName,
			FirstPage: parseFirstPage,
			LastPage:  parseLastPage,
			OutputDir: outDir,
			ImagesDir: h.ImagesDir(),
			Blocks: blocks.Config{
				MinImageSize:        cfg.Parser.MinImageSize,
				LogoRepeatThreshold: cfg.Parser.LogoRepeatThreshold,
				LogoAreaThreshold:   cfg.Parser.LogoAreaThreshold,
				MaxImagesPerPage:    cfg.Parser.MaxImagesPerPage,
				Logger:              logger,
			},
			RawBlocks: rawBlocks,
			Logger:    logger,
		})
		if err != nil {
			return err
		}

		if parseSummary {
			return api.Output(result.Detail)
		}
		return api.Output(result)
	},
}

func init() {
	parseCmd.Flags().StringVar(&parseName, "name", "", "exam name (defaults to the PDF filename)")
	parseCmd.Flags().IntVar(&parseFirstPage, "first-page", 0, "first page to parse (1-based)")
	parseCmd.Flags().IntVar(&parseLastPage, "last-page", 0, "last page to parse")
	parseCmd.Flags().StringVar(&parseOutputDir, "out", "", "output directory for JSON artifacts")
	parseCmd.Flags().BoolVar(&parseRawBlocks, "raw-blocks", false, "also export the normalized block snapshot")
	parseCmd.Flags().BoolVar(&parseSummary, "summary", false, "print only the validation report")

	rootCmd.AddCommand(parseCmd)
}
