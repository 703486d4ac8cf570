// Package app wires the tutoring components into a single service used by
// the HTTP API and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/abhisek/coursemate/internal/adaptive"
	"github.com/abhisek/coursemate/internal/analytics"
	"github.com/abhisek/coursemate/internal/chunking"
	"github.com/abhisek/coursemate/internal/grounding"
	"github.com/abhisek/coursemate/internal/ingest"
	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/quiz"
	"github.com/abhisek/coursemate/internal/retrieval"
	"github.com/abhisek/coursemate/internal/store"
	"github.com/abhisek/coursemate/internal/summary"
	"github.com/abhisek/coursemate/internal/vectorindex"
)

// NoResponsesMessage accompanies a submission without responses.
const NoResponsesMessage = "No responses submitted"

// Options holds the handles and tuning the Service is built from.
type Options struct {
	Store     *store.Store
	Index     vectorindex.Index
	Provider  llm.Provider
	Extractor ingest.Extractor
	Splitter  *chunking.Splitter

	Retrieval retrieval.Config
	Quiz      quiz.Config
	Adaptive  adaptive.Config

	SummaryMaterialCap int
	HalfLife           float64
	UploadDir          string

	Logger *slog.Logger
}

// Service exposes every tutoring operation.
type Service struct {
	store     *store.Store
	ingester  *ingest.Ingester
	answers   *grounding.Synthesizer
	summaries *summary.Summarizer
	quizzes   *quiz.Generator
	adaptive  *adaptive.Engine
	analytics *analytics.Aggregator
	logger    *slog.Logger
}

// New builds a Service. Store, Index and Provider are required.
func New(opts Options) (*Service, error) {
	if opts.Store == nil || opts.Index == nil || opts.Provider == nil {
		return nil, fmt.Errorf("app: store, index and provider are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	quizzes := quiz.New(opts.Index, opts.Provider, opts.Quiz, logger)
	return &Service{
		store: opts.Store,
		ingester: ingest.New(ingest.Options{
			Index:     opts.Index,
			Documents: opts.Store.DocumentRepo(),
			Splitter:  opts.Splitter,
			Extractor: opts.Extractor,
			UploadDir: opts.UploadDir,
			Logger:    logger,
		}),
		answers:   grounding.New(retrieval.New(opts.Index, opts.Retrieval), opts.Provider, logger),
		summaries: summary.New(opts.Index, opts.Provider, opts.SummaryMaterialCap),
		quizzes:   quizzes,
		adaptive:  adaptive.New(opts.Store.AttemptRepo(), quizzes, opts.Adaptive, logger),
		analytics: analytics.New(opts.Store.AttemptRepo(), opts.Provider, opts.HalfLife),
		logger:    logger,
	}, nil
}

// Ingester returns the ingester, for directory watching.
func (s *Service) Ingester() *ingest.Ingester {
	return s.ingester
}

// Ingest stores an uploaded PDF.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (*ingest.Result, error) {
	return s.ingester.Ingest(ctx, filename, data)
}

// IngestText stores plain text material.
func (s *Service) IngestText(ctx context.Context, name, text string) (*ingest.Result, error) {
	return s.ingester.IngestText(ctx, name, text)
}

// Ask answers question from documentID's material only.
func (s *Service) Ask(ctx context.Context, documentID, question string) (*grounding.Answer, error) {
	return s.answers.Ask(ctx, documentID, question)
}

// Summarize summarises documentID.
func (s *Service) Summarize(ctx context.Context, documentID string) (*summary.Result, error) {
	return s.summaries.Summarize(ctx, documentID)
}

// GenerateQuiz creates n questions from documentID. n <= 0 uses the
// configured default.
func (s *Service) GenerateQuiz(ctx context.Context, documentID string, n int) (*quiz.Result, error) {
	return s.quizzes.Generate(ctx, documentID, n)
}

// GenerateAdaptiveQuiz creates n questions aimed at studentID's misses.
func (s *Service) GenerateAdaptiveQuiz(ctx context.Context, studentID, documentID string, n int) (*adaptive.Result, error) {
	return s.adaptive.Generate(ctx, studentID, documentID, n)
}

// Response is one answered quiz question.
type Response struct {
	Question string `json:"question"`
	Selected string `json:"selected"`
	Correct  string `json:"correct"`
}

// Submission is the graded result of a quiz.
type Submission struct {
	StudentID  string
	DocumentID string
	Score      string
	Percentage float64
	Correct    int
	Total      int
	Message    string
}

// SubmitQuiz records every response and grades the quiz. Responses are
// stored all together or not at all; an empty submission writes nothing.
func (s *Service) SubmitQuiz(ctx context.Context, studentID, documentID string, responses []Response) (*Submission, error) {
	sub := &Submission{StudentID: studentID, DocumentID: documentID, Total: len(responses)}
	if len(responses) == 0 {
		sub.Score = "0/0"
		sub.Message = NoResponsesMessage
		return sub, nil
	}

	inputs := make([]store.AttemptInput, len(responses))
	for i, r := range responses {
		inputs[i] = store.AttemptInput{
			StudentID:  studentID,
			DocumentID: documentID,
			Question:   r.Question,
			Selected:   r.Selected,
			Correct:    r.Correct,
		}
	}
	attempts, err := s.store.AttemptRepo().AppendBatch(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("record responses: %w", err)
	}
	for _, a := range attempts {
		if a.IsCorrect {
			sub.Correct++
		}
	}

	sub.Score = fmt.Sprintf("%d/%d", sub.Correct, sub.Total)
	sub.Percentage = Percentage(sub.Correct, sub.Total)

	s.logger.Info("quiz submitted",
		"student_id", studentID,
		"file_id", documentID,
		"score", sub.Score,
	)
	return sub, nil
}

// Percentage returns correct/total*100 rounded to two decimals.
func Percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*100*100) / 100
}

// StudentProgress reports studentID's results on documentID.
func (s *Service) StudentProgress(ctx context.Context, studentID, documentID string) (*analytics.Progress, error) {
	return s.analytics.StudentProgress(ctx, studentID, documentID)
}

// TeacherDashboard reports every student's results on documentID.
func (s *Service) TeacherDashboard(ctx context.Context, documentID string) (*analytics.Dashboard, error) {
	return s.analytics.TeacherDashboard(ctx, documentID)
}

// Documents lists ingested documents, newest first.
func (s *Service) Documents(ctx context.Context) ([]store.Document, error) {
	return s.store.DocumentRepo().List(ctx)
}

// Document returns one document, or nil when it is unknown.
func (s *Service) Document(ctx context.Context, id string) (*store.Document, error) {
	return s.store.DocumentRepo().Get(ctx, id)
}

// Ping checks that the database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.DB().PingContext(ctx)
}
