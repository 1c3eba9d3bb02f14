package provider

import (
	"context"
	"strings"
)

const defaultLocalMaxTokens = 512

// LocalProvider produces deterministic completions without any network
// access: it keeps the densest trailing lines of the prompt and reflows
// them into short bullets. Useful for offline runs and tests.
type LocalProvider struct{}

// NewLocalProvider returns the deterministic heuristic provider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Complete implements Provider. Identical inputs yield identical outputs.
func (p *LocalProvider) Complete(_ context.Context, prompt string, opts Options) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultLocalMaxTokens
	}

	var important []string
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if len(strings.Fields(line)) > 3 {
			important = append(important, line)
		}
	}
	if len(important) > 8 {
		important = important[len(important)-8:]
	}

	summary := strings.Join(important, " ")
	if limit := maxTokens * 4; len(summary) > limit {
		summary = summary[len(summary)-limit:]
	}
	if summary == "" {
		summary = "Provide actionable study guidance."
	}

	var b strings.Builder
	for i, bullet := range chunkText(summary, 24) {
		if bullet == "" {
			continue
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(bullet)
	}
	return b.String(), nil
}

// chunkText splits text into chunks of at most chunkSize whitespace tokens,
// keeping the first six chunks.
func chunkText(text string, chunkSize int) []string {
	tokens := strings.Fields(text)
	var chunks []string
	for i := 0; i < len(tokens); i += chunkSize {
		end := i + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[i:end], " "))
	}
	if len(chunks) > 6 {
		chunks = chunks[:6]
	}
	return chunks
}
