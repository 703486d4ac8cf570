// Package analytics reports student progress and class-level results from
// the attempt log.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/prompts"
	"github.com/abhisek/coursemate/internal/store"
)

// NoWrongAnswers is the roadmap when a student has made no mistakes.
const NoWrongAnswers = "No wrong answers yet."

// DefaultHalfLife is the rank distance at which a miss counts half.
const DefaultHalfLife = 5.0

// WrongQuestion is a question a student has missed.
type WrongQuestion struct {
	Question   string
	TimesWrong int
}

// WeakTopic is a missed question weighted by how recently it was missed.
type WeakTopic struct {
	Question   string
	TimesWrong int
	Weight     float64
}

// Progress is one student's report on one document.
type Progress struct {
	StudentID      string
	DocumentID     string
	TotalAttempted int
	Correct        int
	Accuracy       float64
	WrongQuestions []WrongQuestion
	WeakTopics     []WeakTopic
	Roadmap        string
}

// StudentSummary is one row of the teacher dashboard.
type StudentSummary struct {
	StudentID string
	Attempted int
	Correct   int
	Accuracy  float64
}

// Dashboard is the class report for one document.
type Dashboard struct {
	DocumentID   string
	Students     []StudentSummary
	ClassAverage float64
}

// Aggregator computes reports.
type Aggregator struct {
	attempts store.AttemptRepo
	provider llm.Provider

	// HalfLife controls the recency weighting of weak topics.
	HalfLife  float64
	MaxTokens int
}

// New creates an Aggregator. A non-positive halfLife uses DefaultHalfLife.
func New(attempts store.AttemptRepo, provider llm.Provider, halfLife float64) *Aggregator {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return &Aggregator{attempts: attempts, provider: provider, HalfLife: halfLife, MaxTokens: 1024}
}

// Accuracy returns correct/total as a percentage, or 0 when total is 0.
func Accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// StudentProgress reports studentID's results on documentID. The roadmap
// is generated only when the student has wrong answers.
func (a *Aggregator) StudentProgress(ctx context.Context, studentID, documentID string) (*Progress, error) {
	total, correct, err := a.attempts.CountTotalAndCorrect(ctx, studentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	grouped, err := a.attempts.WrongGroupedByQuestion(ctx, studentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("group wrong answers: %w", err)
	}
	history, err := a.attempts.WrongHistory(ctx, studentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("load wrong history: %w", err)
	}

	p := &Progress{
		StudentID:      studentID,
		DocumentID:     documentID,
		TotalAttempted: total,
		Correct:        correct,
		Accuracy:       Accuracy(correct, total),
		WrongQuestions: lo.Map(grouped, func(w store.WrongCount, _ int) WrongQuestion {
			return WrongQuestion{Question: w.Question, TimesWrong: w.Count}
		}),
		WeakTopics: WeakTopics(history, a.HalfLife),
		Roadmap:    NoWrongAnswers,
	}

	if len(grouped) == 0 {
		return p, nil
	}

	questions := lo.Map(grouped, func(w store.WrongCount, _ int) string { return w.Question })
	prompt, err := prompts.Roadmap.Render(map[string]any{
		"wrong": prompts.BulletList(questions, ""),
	})
	if err != nil {
		return nil, err
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeRoadmap)
	resp, err := a.provider.Generate(ctx, llm.UserPrompt(prompt, a.MaxTokens, 0.4))
	if err != nil {
		return nil, fmt.Errorf("generate roadmap: %w", err)
	}
	p.Roadmap = strings.TrimSpace(resp.Text())
	return p, nil
}

// WeakTopics weights each wrong attempt by 0.5^(rank/halfLife), rank 0
// being the most recent, and sums the weights per question. history must
// be ordered most recent first. Ties keep first-seen order.
func WeakTopics(history []store.Attempt, halfLife float64) []WeakTopic {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}

	index := map[string]int{}
	var topics []WeakTopic
	for rank, a := range history {
		i, ok := index[a.Question]
		if !ok {
			i = len(topics)
			index[a.Question] = i
			topics = append(topics, WeakTopic{Question: a.Question})
		}
		topics[i].TimesWrong++
		topics[i].Weight += math.Pow(0.5, float64(rank)/halfLife)
	}

	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Weight > topics[j].Weight
	})
	return topics
}

// TeacherDashboard summarises every student with attempts on documentID.
func (a *Aggregator) TeacherDashboard(ctx context.Context, documentID string) (*Dashboard, error) {
	students, err := a.attempts.DistinctStudents(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	d := &Dashboard{DocumentID: documentID, Students: []StudentSummary{}}
	for _, s := range students {
		total, correct, err := a.attempts.CountTotalAndCorrect(ctx, s, documentID)
		if err != nil {
			return nil, fmt.Errorf("count attempts for %s: %w", s, err)
		}
		d.Students = append(d.Students, StudentSummary{
			StudentID: s,
			Attempted: total,
			Correct:   correct,
			Accuracy:  Accuracy(correct, total),
		})
	}

	if len(d.Students) > 0 {
		d.ClassAverage = lo.SumBy(d.Students, func(s StudentSummary) float64 { return s.Accuracy }) / float64(len(d.Students))
	}
	return d, nil
}
