/**
 * Aadhaar extractor CLI - Main Entry Point
 *
 * Thin presentation layer over the extraction pipeline:
 * - extract: run one card image through normalize -> OCR -> extract and
 *   print the structured record (optionally appending a CSV log)
 * - health:  probe the OCR engine for external liveness checks
 *
 * The pipeline itself owns no persisted state; the CSV log written here is
 * strictly a presentation-layer artifact.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kycstack/aadhaar-extractor/internal/config"
	"github.com/kycstack/aadhaar-extractor/internal/export"
	"github.com/kycstack/aadhaar-extractor/internal/extract"
	"github.com/kycstack/aadhaar-extractor/internal/imaging"
	"github.com/kycstack/aadhaar-extractor/internal/logging"
	"github.com/kycstack/aadhaar-extractor/internal/pipeline"
)

var (
	flagEnhance  bool
	flagLanguage string
	flagMaskID   bool
	flagCSV      string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "aadhaar-extract",
		Short:        "Extract identity fields from Aadhaar card images",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Optional .env for local development; system env wins.
			_ = godotenv.Load()
		},
	}

	extractCmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Run one card image through the extraction pipeline",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	extractCmd.Flags().BoolVar(&flagEnhance, "enhance", false, "apply contrast/denoise preprocessing before OCR")
	extractCmd.Flags().StringVar(&flagLanguage, "language", "auto", "OCR language model: eng, hin, or auto")
	extractCmd.Flags().BoolVar(&flagMaskID, "mask-id", false, "mask all but the last four ID digits in output")
	extractCmd.Flags().StringVar(&flagCSV, "csv", "", "append the record to a CSV log at this path")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the OCR engine without running recognition",
		RunE:  runHealth,
	}

	root.AddCommand(extractCmd, healthCmd)
	return root
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger("extractor")
	defer logger.Sync()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	orch := pipeline.NewFromConfig(cfg, logger)
	rec, err := orch.Process(cmd.Context(), imaging.RawImage{
		Data:     data,
		MimeType: imaging.DetectMimeType(data),
	}, pipeline.Options{
		Enhance:  flagEnhance || cfg.EnhanceByDefault,
		Language: flagLanguage,
		MaskID:   flagMaskID,
	})
	if err != nil {
		return err
	}

	printRecord(cmd, rec, flagMaskID)

	if flagCSV != "" {
		if err := export.AppendCSV(flagCSV, rec, flagMaskID); err != nil {
			return fmt.Errorf("append csv log: %w", err)
		}
		cmd.Printf("Record appended to %s\n", flagCSV)
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger("extractor")
	defer logger.Sync()

	orch := pipeline.NewFromConfig(cfg, logger)
	if !orch.EngineAvailable(context.Background()) {
		cmd.PrintErrln("OCR engine unavailable")
		os.Exit(1)
	}
	cmd.Println("OCR engine available")
	return nil
}

func printRecord(cmd *cobra.Command, rec *extract.Record, maskID bool) {
	cmd.Printf("Invocation: %s (success=%t)\n", rec.InvocationID, rec.Success)

	kinds := make([]string, 0, len(rec.Fields))
	for kind := range rec.Fields {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		f := rec.Field(extract.FieldKind(kind))
		if !f.Found {
			cmd.Printf("  %-14s not found\n", kind+":")
			continue
		}
		value := f.Value
		if maskID && f.Kind == extract.FieldIDNumber {
			value = export.MaskValue(value)
		}
		cmd.Printf("  %-14s %s (%s)\n", kind+":", value, f.Strategy)
	}

	for _, w := range rec.Warnings {
		cmd.Printf("  warning: %s\n", w)
	}
}
