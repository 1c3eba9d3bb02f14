package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/studypilot/studypilot/internal/store"
)

func TestEvaluateAnswerOverlapAboveThreshold(t *testing.T) {
	ok, feedback := EvaluateAnswer("space time continuum", "space time")
	if !ok {
		t.Fatalf("expected correct, got feedback %q", feedback)
	}
	if feedback != "Great job!" {
		t.Fatalf("unexpected feedback: %q", feedback)
	}
}

func TestEvaluateAnswerIncorrectListsMissingTokens(t *testing.T) {
	ok, feedback := EvaluateAnswer("space time continuum", "banana")
	if ok {
		t.Fatalf("expected incorrect")
	}
	if !strings.HasPrefix(feedback, "Focus on covering: ") {
		t.Fatalf("unexpected feedback prefix: %q", feedback)
	}
	for _, token := range []string{"space", "time", "continuum"} {
		if !strings.Contains(feedback, token) {
			t.Fatalf("feedback %q missing token %q", feedback, token)
		}
	}
}

func TestEvaluateAnswerCaseInsensitive(t *testing.T) {
	if ok, _ := EvaluateAnswer("Newton's Laws", "newton's laws of motion"); !ok {
		t.Fatalf("expected case-folded match to be correct")
	}
}

func TestEvaluateAnswerEmptyExpected(t *testing.T) {
	// Empty expected answer has zero tokens; overlap is 0/1.
	if ok, _ := EvaluateAnswer("", "anything"); ok {
		t.Fatalf("expected incorrect for empty expected answer")
	}
}

func TestEvaluateAnswerFeedbackTruncated(t *testing.T) {
	expected := strings.Repeat("verylongtoken ", 30)
	_, feedback := EvaluateAnswer(expected, "nothing relevant here")
	listing := strings.TrimPrefix(feedback, "Focus on covering: ")
	if len(listing) > 120 {
		t.Fatalf("expected listing capped at 120 bytes, got %d", len(listing))
	}
}

func TestGenerateQuizParsesNumberedPairs(t *testing.T) {
	llm := &stubLLM{response: "1. What is a limit? Answer: the value a function approaches\n2) Define derivative Answer- instantaneous rate of change"}
	tutor := NewTutor(llm, nil)

	quizzes, err := tutor.GenerateQuiz(context.Background(), store.LearningGoal{ID: "g1", Title: "Calculus"}, nil, "summary", 3)
	if err != nil {
		t.Fatalf("GenerateQuiz returned error: %v", err)
	}
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quizzes))
	}
	if quizzes[0].Question != "What is a limit?" {
		t.Fatalf("unexpected question: %q", quizzes[0].Question)
	}
	if quizzes[0].Answer != "the value a function approaches" {
		t.Fatalf("unexpected answer: %q", quizzes[0].Answer)
	}
	if quizzes[1].Answer != "instantaneous rate of change" {
		t.Fatalf("unexpected answer: %q", quizzes[1].Answer)
	}
}

func TestGenerateQuizFallsBackToSyntheticQuestion(t *testing.T) {
	llm := &stubLLM{response: "no structured output here"}
	tutor := NewTutor(llm, nil)

	quizzes, err := tutor.GenerateQuiz(context.Background(), store.LearningGoal{ID: "g1", Title: "Calculus"}, nil, "today we studied limits", 3)
	if err != nil {
		t.Fatalf("GenerateQuiz returned error: %v", err)
	}
	if len(quizzes) != 1 {
		t.Fatalf("expected 1 synthetic question, got %d", len(quizzes))
	}
	if quizzes[0].Answer != "today we studied limits" {
		t.Fatalf("expected synthetic answer from summary, got %q", quizzes[0].Answer)
	}
}

func TestGenerateQuizTruncatesToRequestedCount(t *testing.T) {
	llm := &stubLLM{response: "1. q1 Answer: a1\n2. q2 Answer: a2\n3. q3 Answer: a3\n4. q4 Answer: a4"}
	tutor := NewTutor(llm, nil)

	quizzes, err := tutor.GenerateQuiz(context.Background(), store.LearningGoal{ID: "g1", Title: "Go"}, nil, "s", 2)
	if err != nil {
		t.Fatalf("GenerateQuiz returned error: %v", err)
	}
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quizzes))
	}
}
