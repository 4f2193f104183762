// trace_prompt renders a prompt template with values from a JSON file and,
// with -send, runs it against the configured model.
//
//	go run ./cmd/trace_prompt -template notes_generation.md -values sample.json -send
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"nana-be/internal/config"
	"nana-be/pkg/llm"
	"nana-be/pkg/llm/factory"
	"nana-be/pkg/prompt"

	"github.com/fatih/color"
)

func main() {
	templateName := flag.String("template", "notes_generation.md", "template path relative to the prompts dir")
	valuesPath := flag.String("values", "", "JSON object of placeholder values")
	send := flag.Bool("send", false, "send the filled prompt to the model")
	flag.Parse()

	cfg := config.Load()
	loader := prompt.NewLoader(cfg.App.PromptsDir)

	tmpl, err := loader.Load(*templateName)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	keys, err := prompt.Placeholders(tmpl)
	if err != nil {
		color.Red("Template is malformed: %v", err)
		os.Exit(1)
	}

	values, err := readValues(*valuesPath)
	if err != nil {
		color.Red("Failed to read values: %v", err)
		os.Exit(1)
	}

	color.Cyan("Template: %s", *templateName)
	for _, k := range keys {
		if v, ok := values[k]; ok {
			color.Green("  {%s} = %q", k, preview(v))
		} else {
			color.Red("  {%s} missing", k)
		}
	}

	filled, err := prompt.Format(tmpl, values)
	if err != nil {
		color.Red("\nFill failed: %v", err)
		os.Exit(1)
	}

	color.Yellow("\n──── FILLED PROMPT (%d chars) ────", len(filled))
	fmt.Println(filled)

	if !*send {
		return
	}
	if cfg.Keys.GoogleGemini == "" && cfg.Ai.LLMProvider != "ollama" {
		color.Red("\nGOOGLE_API_KEY not configured")
		os.Exit(1)
	}

	baseURL := cfg.Ai.GeminiBaseURL
	if cfg.Ai.LLMProvider == "ollama" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	provider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Keys.GoogleGemini, cfg.Ai.GeminiModel, baseURL, cfg.Ai.GeminiTimeout)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}

	start := time.Now()
	resp, err := provider.Generate(context.Background(), []llm.Part{llm.TextPart(filled)})
	if err != nil {
		color.Red("\nModel call failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		os.Exit(1)
	}

	color.Yellow("\n──── RESPONSE (%s, %s) ────", resp.Model, time.Since(start).Round(time.Millisecond))
	fmt.Println(resp.Text)
	if resp.Usage != nil {
		color.Cyan("\nTokens: prompt=%d output=%d total=%d",
			resp.Usage.PromptTokens, resp.Usage.CandidateTokens, resp.Usage.TotalTokens)
	}
}

// readValues accepts any JSON scalar per key and stringifies it.
func readValues(path string) (map[string]string, error) {
	values := map[string]string{}
	if path == "" {
		return values, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	for k, v := range generic {
		switch t := v.(type) {
		case string:
			values[k] = t
		default:
			b, _ := json.Marshal(t)
			values[k] = string(b)
		}
	}
	return values, nil
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
