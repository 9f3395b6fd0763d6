package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/Meet-BS/form-scanner-poc/internal/analyzer"
	"github.com/Meet-BS/form-scanner-poc/internal/config"
	"github.com/Meet-BS/form-scanner-poc/internal/llm"
	"github.com/Meet-BS/form-scanner-poc/internal/scanner"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	url := flag.String("url", "", "Target URL to scan")
	file := flag.String("file", "", "Local HTML file to scan (instead of -url)")
	output := flag.String("output", "", "Output file for JSON result (empty for stdout summary only)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall scan timeout")
	flag.Parse()

	if *url == "" && *file == "" {
		fmt.Fprintln(os.Stderr, "usage: scan -url <url> | -file <path> [-output result.json]")
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		red.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()

	gemini, err := llm.NewGeminiClient(llm.Config{
		APIKey:       cfg.Gemini.APIKey,
		BaseURL:      cfg.Gemini.BaseURL,
		Model:        cfg.Gemini.Model,
		MaxTokens:    cfg.Gemini.MaxTokens,
		Timeout:      cfg.Gemini.Timeout,
		RateLimitRPM: cfg.Gemini.RateLimitRPM,
	})
	if err != nil {
		red.Fprintf(os.Stderr, "Failed to create model client: %v\n", err)
		os.Exit(1)
	}

	an := analyzer.New(gemini, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var combined string
	if *url != "" {
		bold.Printf("Scanning %s\n", *url)
		fetcher := scanner.NewFetcher(cfg.Fetcher)
		aggregator := scanner.NewAggregator(fetcher, logger)

		doc, err := aggregator.Aggregate(ctx, *url)
		if err != nil {
			red.Fprintf(os.Stderr, "Fetch failed: %v\n", err)
			os.Exit(1)
		}
		combined = doc.CombinedText
		dim.Printf("  iframes: %d total, %d ok, %d failed\n",
			doc.Stats.Total, doc.Stats.Successful, doc.Stats.Failed)
	} else {
		bold.Printf("Scanning %s\n", *file)
		data, err := os.ReadFile(*file)
		if err != nil {
			red.Fprintf(os.Stderr, "Read failed: %v\n", err)
			os.Exit(1)
		}
		combined = string(data)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("   Analyzing..."),
		progressbar.OptionSpinnerType(14),
	)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}()

	result, err := an.Analyze(ctx, combined)
	close(done)
	bar.Finish()
	fmt.Println()

	if err != nil {
		red.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}

	printSummary(result)

	if *output != "" {
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			red.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*output, jsonData, 0644); err != nil {
			red.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nJSON output saved to: %s\n", *output)
	}
}

func printSummary(result *analyzer.CompleteAnalysisResult) {
	bold.Println("Scan Results:")
	fmt.Printf("├── Functional Forms: %d\n", result.Summary.TotalFunctionalForms)
	fmt.Printf("├── Total Fields: %d\n", result.Summary.TotalFields)
	fmt.Printf("├── Forms Ignored: %d\n", result.Summary.FormsIgnored)
	fmt.Printf("├── Confidence: %s\n", result.Summary.Confidence)
	fmt.Printf("├── Tokens: %d in / %d out\n", result.TotalUsage.InputTokens, result.TotalUsage.OutputTokens)
	fmt.Printf("├── Estimated Cost: $%.4f\n", result.TotalUsage.TotalCost)
	fmt.Printf("└── Duration: %dms (extract %dms, generate %dms)\n",
		result.Timing.TotalMs, result.Timing.ExtractionMs, result.Timing.GenerationMs)

	fmt.Println()
	bold.Println("Forms:")
	for _, form := range result.Forms {
		if form.ValidationStatus.Ready {
			green.Printf("  ✓ %s", form.FormID)
		} else {
			red.Printf("  ✗ %s", form.FormID)
		}
		fmt.Printf(" (%s) — %d fields\n", form.FormType, len(form.Fields))

		if !form.ValidationStatus.Ready {
			yellow.Printf("    value generation failed: %s\n", form.ValidationStatus.Error)
			continue
		}
		for name, value := range form.SuggestedValues {
			dim.Printf("    %s = %v\n", name, value)
		}
	}
}
