package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/stemsi/curricuforge/internal/config"
	"github.com/stemsi/curricuforge/internal/generation"
	"github.com/stemsi/curricuforge/internal/logger"
	"github.com/stemsi/curricuforge/internal/model"
	"github.com/stemsi/curricuforge/internal/validator"
	"golang.org/x/term"
)

func main() {
	var (
		asJSON  bool
		timeout time.Duration
	)
	flag.BoolVar(&asJSON, "json", false, "Print the curriculum as JSON instead of an outline")
	flag.DurationVar(&timeout, "timeout", 0, "Abort the model call after this long (0 waits indefinitely)")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Forge a Curriculum ===")

	params := model.DefaultGenerationParams()
	params.Subject = prompt(reader, "Subject", params.Subject)
	params.Level = model.Level(prompt(reader, "Level ("+options(model.Levels)+")", string(params.Level)))
	params.Duration = prompt(reader, "Duration", params.Duration)
	params.IndustryFocus = prompt(reader, "Industry Focus", params.IndustryFocus)
	params.OptimizationPreference = model.OptimizationPreference(
		prompt(reader, "Optimize for ("+options(model.OptimizationPreferences)+")", string(params.OptimizationPreference)),
	)
	params.AdditionalGoals = prompt(reader, "Additional Goals (optional)", "")

	params.Normalize()
	if errs := validator.Validate(&params); errs != nil {
		for field, msg := range errs {
			fmt.Printf("Error: %s: %s\n", field, msg)
		}
		os.Exit(2)
	}

	apiKey := cfg.GeminiAPIKey
	if apiKey == "" && term.IsTerminal(int(syscall.Stdin)) {
		fmt.Print("Enter Gemini API Key: ")
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // Newline after hidden input
		if err != nil {
			fmt.Println("Error reading API key")
			os.Exit(1)
		}
		apiKey = strings.TrimSpace(string(b))
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	client := generation.NewClient(generation.NewGeminiModel(generation.GeminiConfig{
		APIKey:  apiKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	}, log), log)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fmt.Println("\nForging... (Market Analysis, Module Crafting, Tech Stack Mapping)")
	cur, err := client.Generate(ctx, params)
	if err != nil {
		log.Debug().Err(err).Str("kind", string(generation.KindOf(err))).Msg("Generation failed")
		fmt.Printf("\nForging Failed: %s\n", generation.UserMessage(err))
		os.Exit(1)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cur); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode curriculum")
		}
		return
	}
	printOutline(os.Stdout, cur)
}

// prompt reads one line, falling back to def on empty input.
func prompt(r *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func options[T ~string](opts []T) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = string(o)
	}
	return strings.Join(parts, " | ")
}

func printOutline(w io.Writer, cur *model.Curriculum) {
	fmt.Fprintf(w, "\n%s\n%s\n\n", cur.Title, strings.Repeat("=", len(cur.Title)))
	fmt.Fprintf(w, "Level: %s\nAudience: %s\n\n%s\n", cur.Level, cur.TargetAudience, cur.Overview)

	fmt.Fprintln(w, "\nLearning Outcomes")
	for _, o := range cur.LearningOutcomes {
		fmt.Fprintf(w, "  - %s\n", o)
	}

	fmt.Fprintf(w, "\nProgram Modules (%d)\n", len(cur.Modules))
	for i, m := range cur.Modules {
		fmt.Fprintf(w, "  %02d. %s (%s)\n", i+1, m.Title, m.Duration)
		for _, t := range m.Topics {
			fmt.Fprintf(w, "      * %s\n", t)
		}
		if m.Assessment.Type != "" {
			fmt.Fprintf(w, "      Assessment: %s\n", m.Assessment.Type)
		}
	}

	fmt.Fprintln(w, "\nMarket Alignment")
	fmt.Fprintf(w, "  Roles: %s\n", strings.Join(cur.IndustryAlignment.JobRoles, ", "))
	fmt.Fprintf(w, "  Skills: %s\n", strings.Join(cur.IndustryAlignment.KeySkills, ", "))
	fmt.Fprintf(w, "  Technologies: %s\n", strings.Join(cur.Technologies, ", "))

	fmt.Fprintln(w, "\nEconomic Optimization")
	fmt.Fprintf(w, "  %s\n", cur.EconomicOptimization.EfficiencyStrategy)
	fmt.Fprintf(w, "  Estimated value: %s\n", cur.EconomicOptimization.EstimatedMarketValue)
}
