// Package agent implements the four cooperating pipeline agents: planner,
// researcher, curator, and tutor.
package agent

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/studypilot/studypilot/provider"
)

// ErrInvalidState indicates an agent was invoked in an impossible sequence,
// e.g. the researcher running against a goal that was never persisted. It is
// a programming error and fatal to the run.
var ErrInvalidState = errors.New("invalid state")

// base carries the fields shared by all agents.
type base struct {
	name         string
	systemPrompt string
	llm          provider.Provider
	logger       *log.Logger
}

func newBase(name, systemPrompt string, llm provider.Provider, logger *log.Logger) base {
	if logger == nil {
		logger = log.New(log.Writer(), "[AGENT] ", log.LstdFlags)
	}
	return base{name: name, systemPrompt: systemPrompt, llm: llm, logger: logger}
}

// buildPrompt combines the agent's system prompt with a user instruction.
func (b base) buildPrompt(userPrompt string) string {
	return strings.TrimSpace(strings.TrimSpace(b.systemPrompt) + "\n\n" + strings.TrimSpace(userPrompt))
}

// complete sends a prompt through the configured completion provider.
func (b base) complete(ctx context.Context, prompt string) (string, error) {
	b.logger.Printf("agent %s: llm call", b.name)
	return b.llm.Complete(ctx, prompt, provider.Options{})
}
