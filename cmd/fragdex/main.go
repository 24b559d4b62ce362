// Package main provides the fragdex CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fragdex/fragdex/pkg/fragdex"
	"github.com/fragdex/fragdex/pkg/fragdex/config"
	"github.com/fragdex/fragdex/pkg/fragdex/embedding"
	"github.com/fragdex/fragdex/pkg/fragdex/index"
)

var (
	outputPath string
	pretty     bool
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fragdex",
		Short: "Extract searchable fragments from workbooks and index them",
		Long: `fragdex extracts normalized text fragments (tables, charts, images,
macro notices) from spreadsheet workbooks and keeps a vector store
incrementally consistent with them.`,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	extractCmd := &cobra.Command{
		Use:   "extract [input.xlsx]",
		Short: "Extract fragments from one workbook as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	extractCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	indexCmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Index the workbooks under a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndex,
	}
	indexCmd.Flags().StringVarP(&configPath, "config", "c", "fragdex.yaml", "Config file path")

	rootCmd.AddCommand(extractCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runExtract(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	parser := fragdex.NewParser(fragdex.Options{Logger: log})
	fragments, err := parser.Parse(inputPath)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	var jsonData []byte
	if pretty {
		jsonData, err = json.MarshalIndent(fragments, "", "  ")
	} else {
		jsonData, err = json.Marshal(fragments)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	fmt.Println(string(jsonData))
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	dir := args[0]

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	embedder, err := embedding.NewClient(embedding.Config{
		BaseURL:         cfg.Embedder.BaseURL,
		APIKeyEnv:       cfg.Embedder.APIKeyEnv,
		Model:           cfg.Embedder.Model,
		CompletionModel: cfg.Embedder.CompletionModel,
		Timeout:         cfg.Embedder.Timeout(),
		BatchSize:       cfg.Embedder.BatchSize,
	})
	if err != nil {
		return err
	}

	store, err := index.NewQdrantStore(index.QdrantConfig{
		Host:       cfg.Store.Host,
		Port:       cfg.Store.Port,
		APIKey:     os.Getenv(cfg.Store.APIKeyEnv),
		UseTLS:     cfg.Store.UseTLS,
		Collection: cfg.Store.Collection,
		VectorSize: cfg.Store.VectorSize,
	}, log)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, parseFailures := parseDirectory(dir, cfg, log)
	if len(docs) == 0 && parseFailures == 0 {
		log.Info("no workbooks found", zap.String("dir", dir))
		return nil
	}

	coordinator := index.NewCoordinator(store, embedder, embedder, index.CoordinatorConfig{
		Workers:   cfg.Indexer.Workers,
		Summarize: cfg.Indexer.Summarize,
	}, log)

	summary := coordinator.Update(cmd.Context(), docs)

	fmt.Printf("Index update complete: %d succeeded, %d failed, %d skipped (%d parse failures)\n",
		summary.Succeeded, summary.Failed, summary.Skipped, parseFailures)
	if len(summary.Failures) > 0 {
		paths := make([]string, 0, len(summary.Failures))
		for p := range summary.Failures {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Printf("  %s: %s\n", p, summary.Failures[p])
		}
	}

	return nil
}

// parseDirectory walks a directory for supported workbooks and parses each
// into a document. Load failures are logged and counted, never fatal.
func parseDirectory(dir string, cfg *config.Config, log *zap.Logger) ([]index.Document, int) {
	parser := fragdex.NewParser(fragdex.Options{
		MinImageArea: cfg.Parser.MinImageArea,
		Logger:       log,
	})

	var docs []index.Document
	failures := 0

	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !fragdex.IsSupportedFile(path) {
			return nil
		}

		fragments, err := parser.Parse(path)
		if err != nil {
			log.Error("failed to parse workbook", zap.String("file_path", path), zap.Error(err))
			failures++
			return nil
		}

		docs = append(docs, index.Document{Path: path, Fragments: fragments})
		return nil
	})

	return docs, failures
}
