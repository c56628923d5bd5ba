// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bookgen/internal/book"
	"github.com/pdiddy/bookgen/internal/bookfs"
	"github.com/pdiddy/bookgen/internal/httputil"
	"github.com/pdiddy/bookgen/internal/llm"
	"github.com/pdiddy/bookgen/pkg/types"
)

const defaultChapters = 5

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a complete book from a topic",
	Long: `Generate runs the full pipeline for one book: outline, metadata,
per-chapter section generation with running summaries as context,
introduction, conclusion, and bibliography. The result is written as a
directory tree with per-section files and concatenated chapter and book
files.

When --topic is omitted the topic (and chapter count) are read
interactively from stdin.`,
	RunE: runGenerate,
}

func init() {
	registerGenerateFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

func registerGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().String("topic", "", "book topic (prompted interactively when omitted)")
	cmd.Flags().Int("chapters", defaultChapters, "number of chapters")
	cmd.Flags().String("output", "", "output directory (default: timestamped directory derived from the topic)")
	cmd.Flags().String("model", "gemma2:27b", "model identifier")
	cmd.Flags().String("api", "http://localhost:11434", "inference server base URL")
	cmd.Flags().Int("max-retries", 3, "retry attempts for failed generation calls")
	cmd.Flags().Duration("retry-delay", 5*time.Second, "base delay between retry attempts")
	cmd.Flags().Duration("timeout", 120*time.Second, "HTTP request timeout")
	cmd.Flags().Duration("section-delay", time.Second, "pause between consecutive section calls")
	cmd.Flags().Float64("temperature", 0.75, "sampling temperature")
	cmd.Flags().Float64("top-p", 0.9, "nucleus sampling cutoff")
	cmd.Flags().Int("num-ctx", 8000, "model context window size")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	llmCfg, genCfg := generateConfig(cmd)

	topic := stringSetting(cmd, "topic", "generation.topic")
	chapters := intSetting(cmd, "chapters", "generation.chapters")

	// Interactive fallback when no topic was given on the command line.
	if topic == "" {
		reader := bufio.NewReader(os.Stdin)

		fmt.Fprint(os.Stderr, "Enter the topic for the book: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading topic: %w", err)
		}
		topic = strings.TrimSpace(line)
		if topic == "" {
			return fmt.Errorf("a topic is required")
		}

		if !cmd.Flags().Changed("chapters") {
			fmt.Fprintf(os.Stderr, "Enter the number of chapters (default: %d): ", chapters)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading chapter count: %w", err)
			}
			if line = strings.TrimSpace(line); line != "" {
				n, err := strconv.Atoi(line)
				if err != nil || n < 1 {
					fmt.Fprintf(os.Stderr, "Invalid value. Using the default: %d\n", chapters)
				} else {
					chapters = n
				}
			}
		}
	}

	if chapters < 1 {
		return fmt.Errorf("chapter count must be positive, got %d", chapters)
	}

	outputDir := genCfg.OutputDir
	if outputDir == "" {
		outputDir = bookfs.DefaultOutputDir(topic)
	}

	if llmCfg.RetryDelay > 0 {
		httputil.RetryBaseDelay = llmCfg.RetryDelay
	}

	spec := types.BookSpec{
		Topic:    topic,
		Chapters: chapters,
		Model:    llmCfg.Model,
		APIURL:   llmCfg.APIURL,
	}

	client := llm.NewClient(llmCfg)
	assembler := book.NewAssembler(client, genCfg.SectionDelay, os.Stderr)

	artifact, err := assembler.Generate(cmd.Context(), spec)
	if err != nil {
		return err
	}

	if err := bookfs.WriteBook(artifact, outputDir); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nBook generated in %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "Main book file: %s/full_book.md\n", outputDir)
	fmt.Fprintf(os.Stderr, "Book structure: %s/README.md\n", outputDir)
	return nil
}

// generateConfig assembles the LLM and generation configs from flags,
// the config file, and loaded secrets.
func generateConfig(cmd *cobra.Command) (types.LLMConfig, types.GenerationConfig) {
	llmCfg := types.LLMConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   durationSetting(cmd, "timeout", "llm.timeout"),
			UserAgent: "bookgen/" + version,
		},
		APIURL:      stringSetting(cmd, "api", "llm.api_url"),
		Model:       stringSetting(cmd, "model", "llm.model"),
		APIKey:      loadedSecrets.Value("llm-api-key"),
		MaxRetries:  intSetting(cmd, "max-retries", "llm.max_retries"),
		RetryDelay:  durationSetting(cmd, "retry-delay", "llm.retry_delay"),
		Temperature: float64Setting(cmd, "temperature", "llm.temperature"),
		TopP:        float64Setting(cmd, "top-p", "llm.top_p"),
		NumCtx:      intSetting(cmd, "num-ctx", "llm.num_ctx"),
	}

	genCfg := types.GenerationConfig{
		OutputDir:    stringSetting(cmd, "output", "generation.output_dir"),
		SectionDelay: durationSetting(cmd, "section-delay", "generation.section_delay"),
	}

	return llmCfg, genCfg
}
