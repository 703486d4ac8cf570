package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match ("" = any)
}

// AttemptInput is one quiz response as submitted.
type AttemptInput struct {
	StudentID  string
	DocumentID string
	Question   string
	Selected   string
	Correct    string
}

// Attempt is a stored quiz response. Attempts are append-only.
type Attempt struct {
	ID         int64
	Sequence   int64
	StudentID  string
	DocumentID string
	Question   string
	Selected   string
	Correct    string
	IsCorrect  bool
	Timestamp  time.Time
}

// WrongCount is the number of incorrect attempts at one question.
type WrongCount struct {
	Question     string
	Count        int
	LastSequence int64 // sequence of the most recent incorrect attempt
}

// AttemptRepo is the durable log of quiz responses.
type AttemptRepo interface {
	// Append records one response. Correctness is derived as
	// Selected == Correct.
	Append(ctx context.Context, in AttemptInput) (*Attempt, error)

	// AppendBatch records responses in one transaction: either all of
	// them are stored or none are.
	AppendBatch(ctx context.Context, ins []AttemptInput) ([]Attempt, error)

	// CountTotalAndCorrect counts a student's attempts on a document.
	CountTotalAndCorrect(ctx context.Context, studentID, documentID string) (total, correct int, err error)

	// WrongGroupedByQuestion groups incorrect attempts by question text,
	// ordered by count descending, then most recent first.
	WrongGroupedByQuestion(ctx context.Context, studentID, documentID string) ([]WrongCount, error)

	// DistinctStudents lists every student with attempts on a document,
	// sorted ascending.
	DistinctStudents(ctx context.Context, documentID string) ([]string, error)

	// RecentWrong returns up to limit incorrectly answered question texts,
	// most recent first. Repeats of the same question are kept.
	RecentWrong(ctx context.Context, studentID, documentID string, limit int) ([]string, error)

	// WrongHistory returns every incorrect attempt, most recent first.
	WrongHistory(ctx context.Context, studentID, documentID string) ([]Attempt, error)
}

// ChunkRecord is a persisted chunk with its embedding.
type ChunkRecord struct {
	ID         string
	DocumentID string
	Position   int
	Offset     int
	Content    string
	Embedding  []float32
}

// ChunkRepo persists the vector index.
type ChunkRepo interface {
	// ReplaceDocument atomically swaps every chunk of a document for chunks.
	ReplaceDocument(ctx context.Context, documentID string, chunks []ChunkRecord) error

	// ListByDocument returns a document's chunks ordered by position.
	// An unknown document yields an empty slice.
	ListByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error)
}

// Document is an ingested source.
type Document struct {
	ID         string
	Filename   string
	SHA256     string
	ChunkCount int
	CreatedAt  time.Time
}

// DocumentRepo is the registry of ingested documents.
type DocumentRepo interface {
	Create(ctx context.Context, doc Document) error

	// Get returns nil, nil when the document does not exist.
	Get(ctx context.Context, id string) (*Document, error)

	// List returns documents newest first.
	List(ctx context.Context) ([]Document, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token usage for one purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns nil, nil for an unknown id.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
