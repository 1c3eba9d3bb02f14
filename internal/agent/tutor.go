package agent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/studypilot/studypilot/internal/store"
	"github.com/studypilot/studypilot/provider"
)

// DefaultQuizQuestions is the number of questions generated when the caller
// does not ask for a specific count.
const DefaultQuizQuestions = 3

// correctThreshold is the token-overlap ratio above which an answer counts
// as correct.
const correctThreshold = 0.4

// QuizPayload is one generated question/answer pair.
type QuizPayload struct {
	Question   string
	Answer     string
	Difficulty string
}

// Tutor generates formative quiz questions and scores learner answers.
type Tutor struct {
	base
}

// NewTutor constructs the tutor agent.
func NewTutor(llm provider.Provider, logger *log.Logger) *Tutor {
	return &Tutor{base: newBase(
		"tutor",
		"You are a friendly coach. Create short formative questions and include the answer key.",
		llm, logger,
	)}
}

var questionLine = regexp.MustCompile(`(?i)^(\d+)[.)\-]*\s*(.+?)\s*answer[:\-]\s*(.+)$`)

// GenerateQuiz asks for numQuestions question/answer pairs and parses the
// numbered "question ... Answer: ..." line format. When parsing yields
// nothing, a single synthetic question embedding the summary is returned.
func (t *Tutor) GenerateQuiz(ctx context.Context, goal store.LearningGoal, planItems []store.PlanItem, curatedSummary string, numQuestions int) ([]QuizPayload, error) {
	if numQuestions <= 0 {
		numQuestions = DefaultQuizQuestions
	}

	var plan strings.Builder
	for _, item := range planItems {
		fmt.Fprintf(&plan, "- %s\n", item.Task)
	}
	userPrompt := fmt.Sprintf(
		"Goal: %s. Craft %d quick questions that test the study plan.\nPlan:\n%sSummary:\n%s\nRespond as numbered question + answer pairs, each line like \"1. question Answer: answer\".",
		goal.Title, numQuestions, plan.String(), curatedSummary)

	response, err := t.complete(ctx, t.buildPrompt(userPrompt))
	if err != nil {
		return nil, fmt.Errorf("tutor: %w", err)
	}

	quizzes := parseQuestions(response)
	if len(quizzes) == 0 {
		quizzes = []QuizPayload{{
			Question:   "Explain today's concept in your own words.",
			Answer:     truncateRunes(curatedSummary, 150),
			Difficulty: "medium",
		}}
	}
	if len(quizzes) > numQuestions {
		quizzes = quizzes[:numQuestions]
	}
	return quizzes, nil
}

func parseQuestions(raw string) []QuizPayload {
	var entries []QuizPayload
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := questionLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, QuizPayload{
			Question:   strings.TrimSpace(m[2]),
			Answer:     strings.TrimSpace(m[3]),
			Difficulty: "medium",
		})
	}
	return entries
}

// EvaluateAnswer scores a learner answer against the expected one by token
// overlap: both strings are case-folded and whitespace-split into sets, and
// the answer is correct when the share of expected tokens present in the
// given answer reaches 0.4. Usable independently of quiz generation.
func EvaluateAnswer(expected, given string) (bool, string) {
	expectedTokens := tokenSet(expected)
	givenTokens := tokenSet(given)

	overlap := 0
	for token := range expectedTokens {
		if _, ok := givenTokens[token]; ok {
			overlap++
		}
	}
	denom := len(expectedTokens)
	if denom < 1 {
		denom = 1
	}
	isCorrect := float64(overlap)/float64(denom) >= correctThreshold
	if isCorrect {
		return true, "Great job!"
	}

	missing := make([]string, 0, len(expectedTokens))
	for token := range expectedTokens {
		if _, ok := givenTokens[token]; !ok {
			missing = append(missing, token)
		}
	}
	sort.Strings(missing)
	listing := strings.Join(missing, " ")
	if len(listing) > 120 {
		listing = listing[:120]
	}
	return false, "Focus on covering: " + listing
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(s)) {
		set[token] = struct{}{}
	}
	return set
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
