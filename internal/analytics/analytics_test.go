package analytics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/store"
)

func openAttempts(t *testing.T) store.AttemptRepo {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.AttemptRepo()
}

func record(t *testing.T, repo store.AttemptRepo, student, doc, question string, correct bool) {
	t.Helper()
	selected := "A"
	if !correct {
		selected = "C"
	}
	_, err := repo.Append(context.Background(), store.AttemptInput{
		StudentID: student, DocumentID: doc, Question: question, Selected: selected, Correct: "A",
	})
	require.NoError(t, err)
}

func TestStudentProgress(t *testing.T) {
	repo := openAttempts(t)
	record(t, repo, "s1", "doc", "What is osmosis?", false)
	record(t, repo, "s1", "doc", "Define diffusion", true)
	record(t, repo, "s1", "doc", "Name the organelle", false)
	record(t, repo, "s1", "doc", "What is osmosis?", false)
	record(t, repo, "s1", "other", "Elsewhere", false)

	mock := llm.NewMockProvider(llm.TextResponse("  1. Revise osmosis  "))
	p, err := New(repo, mock, 0).StudentProgress(context.Background(), "s1", "doc")
	require.NoError(t, err)

	assert.Equal(t, 4, p.TotalAttempted)
	assert.Equal(t, 1, p.Correct)
	assert.InDelta(t, 25.0, p.Accuracy, 1e-9)
	assert.Equal(t, []WrongQuestion{
		{Question: "What is osmosis?", TimesWrong: 2},
		{Question: "Name the organelle", TimesWrong: 1},
	}, p.WrongQuestions)
	assert.Equal(t, "1. Revise osmosis", p.Roadmap)

	require.Equal(t, 1, mock.CallCount())
	prompt := mock.LastPrompt()
	assert.Contains(t, prompt, "- What is osmosis?\n- Name the organelle")
	assert.NotContains(t, prompt, "Elsewhere")
	assert.NotContains(t, prompt, "Define diffusion")
}

func TestStudentProgress_NoWrongAnswers(t *testing.T) {
	repo := openAttempts(t)
	record(t, repo, "s1", "doc", "q", true)

	mock := llm.NewMockProvider()
	p, err := New(repo, mock, 0).StudentProgress(context.Background(), "s1", "doc")
	require.NoError(t, err)

	assert.Equal(t, NoWrongAnswers, p.Roadmap)
	assert.Empty(t, p.WrongQuestions)
	assert.InDelta(t, 100.0, p.Accuracy, 1e-9)
	assert.Zero(t, mock.CallCount())
}

func TestStudentProgress_NoAttempts(t *testing.T) {
	p, err := New(openAttempts(t), llm.NewMockProvider(), 0).StudentProgress(context.Background(), "ghost", "doc")
	require.NoError(t, err)
	assert.Zero(t, p.TotalAttempted)
	assert.Zero(t, p.Accuracy)
	assert.Equal(t, NoWrongAnswers, p.Roadmap)
}

func TestStudentProgress_ProviderFailure(t *testing.T) {
	repo := openAttempts(t)
	record(t, repo, "s1", "doc", "q", false)

	_, err := New(repo, llm.NewMockProvider(), 0).StudentProgress(context.Background(), "s1", "doc")
	assert.True(t, llm.IsProviderFailure(err))
}

func TestWeakTopics(t *testing.T) {
	// most recent first
	history := []store.Attempt{
		{Question: "recent"},
		{Question: "old"},
		{Question: "old"},
		{Question: "recent"},
	}
	topics := WeakTopics(history, 1)
	require.Len(t, topics, 2)

	// recent: 0.5^0 + 0.5^3 = 1.125, old: 0.5^1 + 0.5^2 = 0.75
	assert.Equal(t, "recent", topics[0].Question)
	assert.InDelta(t, 1.125, topics[0].Weight, 1e-9)
	assert.Equal(t, 2, topics[0].TimesWrong)
	assert.InDelta(t, 0.75, topics[1].Weight, 1e-9)

	assert.Empty(t, WeakTopics(nil, 5))
}

func TestWeakTopics_RecencyBeatsCount(t *testing.T) {
	history := []store.Attempt{{Question: "new"}}
	for i := 0; i < 2; i++ {
		history = append(history, store.Attempt{Question: "stale"})
	}
	for i := 0; i < 30; i++ {
		history = append(history, store.Attempt{Question: "filler"})
	}
	topics := WeakTopics(history, 0.5)
	require.Len(t, topics, 3)
	// new: 1, stale: 0.25 + 0.0625, filler: under 0.021 despite 30 misses
	assert.Equal(t, []string{"new", "stale", "filler"}, []string{topics[0].Question, topics[1].Question, topics[2].Question})
	assert.InDelta(t, 0.3125, topics[1].Weight, 1e-9)
	assert.Equal(t, 30, topics[2].TimesWrong)
	assert.Less(t, topics[2].Weight, 0.021)
}

func TestTeacherDashboard(t *testing.T) {
	repo := openAttempts(t)
	record(t, repo, "zoe", "doc", "q1", true)
	record(t, repo, "zoe", "doc", "q2", true)
	record(t, repo, "amir", "doc", "q1", true)
	record(t, repo, "amir", "doc", "q2", false)
	record(t, repo, "other", "elsewhere", "q1", true)

	d, err := New(repo, llm.NewMockProvider(), 0).TeacherDashboard(context.Background(), "doc")
	require.NoError(t, err)

	require.Len(t, d.Students, 2)
	assert.Equal(t, "amir", d.Students[0].StudentID)
	assert.Equal(t, StudentSummary{StudentID: "amir", Attempted: 2, Correct: 1, Accuracy: 50}, d.Students[0])
	assert.Equal(t, StudentSummary{StudentID: "zoe", Attempted: 2, Correct: 2, Accuracy: 100}, d.Students[1])
	assert.InDelta(t, 75.0, d.ClassAverage, 1e-9)
}

func TestTeacherDashboard_Empty(t *testing.T) {
	d, err := New(openAttempts(t), nil, 0).TeacherDashboard(context.Background(), "doc")
	require.NoError(t, err)
	assert.NotNil(t, d.Students)
	assert.Empty(t, d.Students)
	assert.Zero(t, d.ClassAverage)
}
