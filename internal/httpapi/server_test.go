package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/coursemate/internal/app"
	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/prompts"
	"github.com/abhisek/coursemate/internal/store"
	"github.com/abhisek/coursemate/internal/vectorindex"
)

const quizJSON = `Here you go:
[{"question": "What is osmosis?", "options": {"D": "Heat", "A": "Water movement", "B": "Cell split", "C": "Light"}, "answer": "A", "explanation": "Osmosis moves water."}]`

// staticExtractor returns the same text for every PDF.
type staticExtractor string

func (s staticExtractor) Extract(context.Context, []byte) (string, error) {
	return string(s), nil
}

type harness struct {
	server *Server
	svc    *app.Service
	mock   *llm.MockProvider
}

func newHarness(t *testing.T, opts Options, responses ...llm.MockResponse) *harness {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := llm.NewMockProvider(responses...)
	svc, err := app.New(app.Options{
		Store:     s,
		Index:     vectorindex.NewSQLIndex(s.ChunkRepo(), llm.NewMockEmbedder()),
		Provider:  mock,
		Extractor: staticExtractor("Osmosis is the movement of water across a membrane."),
		UploadDir: t.TempDir(),
	})
	require.NoError(t, err)
	return &harness{server: New(svc, opts), svc: svc, mock: mock}
}

func (h *harness) post(t *testing.T, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return h.do(t, req)
}

func (h *harness) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (h *harness) upload(t *testing.T, filename string, data []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-pdf/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(t, req)
}

func (h *harness) ingest(t *testing.T) string {
	t.Helper()
	rec, body := h.upload(t, "bio.pdf", []byte("%PDF-1.4 body"))
	require.Equal(t, http.StatusOK, rec.Code)
	id, _ := body["file_id"].(string)
	require.NotEmpty(t, id, body)
	return id
}

func TestHealthAndRoot(t *testing.T) {
	h := newHarness(t, Options{})

	rec, body := h.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	_, body = h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "Backend running", body["status"])
}

func TestCORS(t *testing.T) {
	h := newHarness(t, Options{CORSOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/ask/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUpload(t *testing.T) {
	h := newHarness(t, Options{})

	rec, body := h.upload(t, "bio.pdf", []byte("%PDF-1.4 body"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PDF uploaded + stored in vector DB", body["message"])
	assert.EqualValues(t, 1, body["chunks_stored"])

	rec, body = h.upload(t, "notes.txt", []byte("plain"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Only PDF files allowed", body["error"])

	rec, body = h.upload(t, "fake.pdf", []byte("not really"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Only PDF files allowed", body["error"])

	req := httptest.NewRequest(http.MethodPost, "/upload-pdf/", strings.NewReader("x"))
	rec, _ = h.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = h.do(t, httptest.NewRequest(http.MethodGet, "/documents/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	docs := body["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "bio.pdf", docs[0].(map[string]any)["filename"])
}

func TestAsk(t *testing.T) {
	h := newHarness(t, Options{}, llm.TextResponse("Water moving across a membrane. (Used: Chunk 1)"))
	id := h.ingest(t)

	rec, body := h.post(t, "/ask/", map[string]string{"file_id": id, "question": "What is osmosis?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Water moving across a membrane. (Used: Chunk 1)", body["answer"])
	assert.Equal(t, "grounded", body["mode"])
	assert.Equal(t, []any{"Chunk 1"}, body["citations"])
	chunks := body["chunks_used"].([]any)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Chunk 1", chunks[0].(map[string]any)["label"])
}

func TestAsk_UnknownDocument(t *testing.T) {
	h := newHarness(t, Options{})
	rec, body := h.post(t, "/ask/", map[string]string{"file_id": "nope", "question": "Anything?"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prompts.NotFoundAnswer, body["answer"])
	assert.Equal(t, []any{}, body["chunks_used"])
	assert.Zero(t, h.mock.CallCount())
}

func TestAsk_BadInput(t *testing.T) {
	h := newHarness(t, Options{})

	rec, _ := h.post(t, "/ask/", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := h.post(t, "/ask/", map[string]string{"file_id": "x"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["error"], "required")
}

func TestAsk_ProviderFailure(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ingest(t)

	rec, body := h.post(t, "/ask/", map[string]string{"file_id": id, "question": "What is osmosis?"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestAsk_Timeout(t *testing.T) {
	h := newHarness(t, Options{RequestTimeout: time.Nanosecond},
		llm.MockResponse{Err: context.DeadlineExceeded})
	// uploads would expire too, so ingest around the HTTP layer
	res, err := h.svc.IngestText(context.Background(), "bio.txt", "Osmosis moves water.")
	require.NoError(t, err)
	id := res.DocumentID

	rec, body := h.post(t, "/ask/", map[string]string{"file_id": id, "question": "What is osmosis?"})
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "request timed out", body["error"])
}

func TestSummarize(t *testing.T) {
	h := newHarness(t, Options{}, llm.TextResponse("A summary."))
	id := h.ingest(t)

	_, body := h.post(t, "/summarize/", map[string]string{"file_id": id})
	assert.Equal(t, "A summary.", body["summary"])

	rec, body := h.post(t, "/summarize/", map[string]string{"file_id": "missing"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, NoContentError, body["error"])
}

func TestGenerateQuiz(t *testing.T) {
	h := newHarness(t, Options{}, llm.TextResponse(quizJSON), llm.TextResponse("no json here"))
	id := h.ingest(t)

	rec, body := h.post(t, "/generate-quiz/", map[string]any{"file_id": id, "num_questions": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["quiz"].([]any)
	require.Len(t, items, 1)
	assert.NotContains(t, body, "raw_output")
	// options keep the model's order
	assert.Contains(t, rec.Body.String(), `"options":{"D":"Heat","A":"Water movement"`)

	_, body = h.post(t, "/generate-quiz/", map[string]any{"file_id": id})
	assert.Equal(t, []any{}, body["quiz"])
	assert.Equal(t, "no json here", body["raw_output"])

	_, body = h.post(t, "/generate-quiz/", map[string]any{"file_id": "missing"})
	assert.Equal(t, NoContentError, body["error"])
}

func TestAdaptiveFlow(t *testing.T) {
	h := newHarness(t, Options{}, llm.TextResponse("Revise osmosis."), llm.TextResponse(quizJSON))
	id := h.ingest(t)

	rec, body := h.post(t, "/submit-quiz/", map[string]any{
		"student_id": "s1",
		"file_id":    id,
		"responses": []map[string]string{
			{"question": "What is osmosis?", "selected": "B", "correct": "A"},
			{"question": "What is diffusion?", "selected": "C", "correct": "C"},
			{"question": "What is ATP?", "selected": "A", "correct": "A"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2/3", body["score"])
	assert.Equal(t, 66.67, body["percentage"])

	_, body = h.post(t, "/student-progress/", map[string]string{"student_id": "s1", "file_id": id})
	assert.EqualValues(t, 3, body["total_attempted"])
	assert.EqualValues(t, 2, body["correct"])
	assert.Equal(t, "Revise osmosis.", body["personalized_roadmap"])
	wrong := body["wrong_questions"].([]any)
	require.Len(t, wrong, 1)
	assert.Equal(t, map[string]any{"question": "What is osmosis?", "times_wrong": float64(1)}, wrong[0])

	_, body = h.post(t, "/generate-adaptive-quiz/", map[string]any{"student_id": "s1", "file_id": id, "num_questions": 1})
	assert.Equal(t, "s1", body["student_id"])
	assert.Equal(t, []any{"What is osmosis?"}, body["focus"])
	assert.Equal(t, []any{"What is osmosis?"}, body["repeats"])

	_, body = h.post(t, "/teacher-dashboard/", map[string]string{"file_id": id})
	report := body["student_report"].([]any)
	require.Len(t, report, 1)
	assert.Equal(t, "s1", report[0].(map[string]any)["student_id"])
	assert.EqualValues(t, 3, report[0].(map[string]any)["attempted"])
}

func TestSubmitQuiz_Empty(t *testing.T) {
	h := newHarness(t, Options{})
	_, body := h.post(t, "/submit-quiz/", map[string]any{"student_id": "s1", "file_id": "doc", "responses": []any{}})
	assert.Equal(t, "0/0", body["score"])
	assert.EqualValues(t, 0, body["percentage"])
	assert.Equal(t, app.NoResponsesMessage, body["message"])
}

func TestTeacherDashboard_Empty(t *testing.T) {
	h := newHarness(t, Options{})
	_, body := h.post(t, "/teacher-dashboard/", map[string]string{"file_id": "doc"})
	assert.Equal(t, []any{}, body["student_report"])
}
