package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/abhisek/coursemate/internal/analytics"
	"github.com/abhisek/coursemate/internal/app"
	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/quiz"
	"github.com/abhisek/coursemate/internal/retrieval"
	"github.com/abhisek/coursemate/internal/store"
)

// NoContentError is returned for documents without indexed chunks.
const NoContentError = "No content found for this file_id"

type askRequest struct {
	FileID   string `json:"file_id"`
	Question string `json:"question"`
}

type chunkJSON struct {
	Label    string  `json:"label"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

type askResponse struct {
	FileID     string      `json:"file_id"`
	Question   string      `json:"question"`
	Answer     string      `json:"answer"`
	Mode       string      `json:"mode"`
	ChunksUsed []chunkJSON `json:"chunks_used"`
	Citations  []string    `json:"citations"`
}

type fileRequest struct {
	FileID string `json:"file_id"`
}

type quizRequest struct {
	StudentID    string `json:"student_id"`
	FileID       string `json:"file_id"`
	NumQuestions int    `json:"num_questions"`
}

type quizResponse struct {
	StudentID string      `json:"student_id,omitempty"`
	FileID    string      `json:"file_id"`
	Quiz      []quiz.Item `json:"quiz"`
	RawOutput *string     `json:"raw_output,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Focus     []string    `json:"focus,omitempty"`
	Repeats   []string    `json:"repeats,omitempty"`
}

type submitRequest struct {
	StudentID string         `json:"student_id"`
	FileID    string         `json:"file_id"`
	Responses []app.Response `json:"responses"`
}

type submitResponse struct {
	StudentID  string  `json:"student_id"`
	FileID     string  `json:"file_id"`
	Score      string  `json:"score"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message,omitempty"`
}

type progressRequest struct {
	StudentID string `json:"student_id"`
	FileID    string `json:"file_id"`
}

type wrongJSON struct {
	Question   string `json:"question"`
	TimesWrong int    `json:"times_wrong"`
}

type weakTopicJSON struct {
	Question   string  `json:"question"`
	TimesWrong int     `json:"times_wrong"`
	Weight     float64 `json:"weight"`
}

type progressResponse struct {
	StudentID      string          `json:"student_id"`
	FileID         string          `json:"file_id"`
	TotalAttempted int             `json:"total_attempted"`
	Correct        int             `json:"correct"`
	Accuracy       float64         `json:"accuracy"`
	WrongQuestions []wrongJSON     `json:"wrong_questions"`
	WeakTopics     []weakTopicJSON `json:"weak_topics"`
	Roadmap        string          `json:"personalized_roadmap"`
}

type studentJSON struct {
	StudentID string  `json:"student_id"`
	Attempted int     `json:"attempted"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

type dashboardResponse struct {
	FileID        string        `json:"file_id"`
	StudentReport []studentJSON `json:"student_report"`
	ClassAverage  float64       `json:"class_average"`
}

type documentJSON struct {
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	SHA256     string    `json:"sha256"`
	ChunkCount int       `json:"chunks_stored"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) uploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		s.logger.Warn("upload without file", "error", err)
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	res, err := s.svc.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		s.fail(w, "upload", err)
		return
	}
	if res.Rejected != "" {
		writeError(w, http.StatusOK, res.Rejected)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "PDF uploaded + stored in vector DB",
		"file_id":       res.DocumentID,
		"chunks_stored": res.ChunkCount,
	})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FileID) == "" || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusOK, "file_id and question are required")
		return
	}

	ans, err := s.svc.Ask(r.Context(), req.FileID, req.Question)
	if err != nil {
		s.fail(w, "ask", err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		FileID:   ans.DocumentID,
		Question: ans.Question,
		Answer:   ans.Text,
		Mode:     string(ans.Mode),
		ChunksUsed: lo.Map(ans.ChunksUsed, func(c retrieval.Labeled, _ int) chunkJSON {
			return chunkJSON{Label: c.Label, Position: c.Position, Score: c.Score, Text: c.Text}
		}),
		Citations: lo.Ternary(ans.Citations == nil, []string{}, ans.Citations),
	})
}

func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.Summarize(r.Context(), req.FileID)
	if err != nil {
		s.fail(w, "summarize", err)
		return
	}
	if res.NoContent {
		writeError(w, http.StatusOK, NoContentError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file_id": res.DocumentID, "summary": res.Summary})
}

func (s *Server) generateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.GenerateQuiz(r.Context(), req.FileID, req.NumQuestions)
	if err != nil {
		s.fail(w, "generate quiz", err)
		return
	}
	if res.NoContent {
		writeError(w, http.StatusOK, NoContentError)
		return
	}
	writeJSON(w, http.StatusOK, quizBody(res, ""))
}

func (s *Server) generateAdaptiveQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.StudentID) == "" {
		writeError(w, http.StatusOK, "student_id is required")
		return
	}
	res, err := s.svc.GenerateAdaptiveQuiz(r.Context(), req.StudentID, req.FileID, req.NumQuestions)
	if err != nil {
		s.fail(w, "generate adaptive quiz", err)
		return
	}
	if res.NoContent {
		writeError(w, http.StatusOK, NoContentError)
		return
	}

	body := quizBody(res.Result, req.StudentID)
	body.Focus = res.Missed
	for _, rep := range res.Repeats {
		body.Repeats = append(body.Repeats, rep.Question)
	}
	writeJSON(w, http.StatusOK, body)
}

func quizBody(res *quiz.Result, studentID string) quizResponse {
	body := quizResponse{StudentID: studentID, FileID: res.DocumentID, Quiz: res.Items}
	if body.Quiz == nil {
		body.Quiz = []quiz.Item{}
	}
	if !res.OK() {
		raw := res.Raw
		body.RawOutput = &raw
		body.Reason = res.Reason
	}
	return body
}

func (s *Server) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.StudentID) == "" || strings.TrimSpace(req.FileID) == "" {
		writeError(w, http.StatusOK, "student_id and file_id are required")
		return
	}

	sub, err := s.svc.SubmitQuiz(r.Context(), req.StudentID, req.FileID, req.Responses)
	if err != nil {
		s.fail(w, "submit quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		StudentID:  sub.StudentID,
		FileID:     sub.DocumentID,
		Score:      sub.Score,
		Percentage: sub.Percentage,
		Message:    sub.Message,
	})
}

func (s *Server) studentProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.svc.StudentProgress(r.Context(), req.StudentID, req.FileID)
	if err != nil {
		s.fail(w, "student progress", err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		StudentID:      p.StudentID,
		FileID:         p.DocumentID,
		TotalAttempted: p.TotalAttempted,
		Correct:        p.Correct,
		Accuracy:       p.Accuracy,
		WrongQuestions: lo.Map(p.WrongQuestions, func(q analytics.WrongQuestion, _ int) wrongJSON {
			return wrongJSON{Question: q.Question, TimesWrong: q.TimesWrong}
		}),
		WeakTopics: lo.Map(p.WeakTopics, func(t analytics.WeakTopic, _ int) weakTopicJSON {
			return weakTopicJSON{Question: t.Question, TimesWrong: t.TimesWrong, Weight: t.Weight}
		}),
		Roadmap: p.Roadmap,
	})
}

func (s *Server) teacherDashboard(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if !s.decode(w, r, &req) {
		return
	}
	d, err := s.svc.TeacherDashboard(r.Context(), req.FileID)
	if err != nil {
		s.fail(w, "teacher dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		FileID: d.DocumentID,
		StudentReport: lo.Map(d.Students, func(st analytics.StudentSummary, _ int) studentJSON {
			return studentJSON{StudentID: st.StudentID, Attempted: st.Attempted, Correct: st.Correct, Accuracy: st.Accuracy}
		}),
		ClassAverage: d.ClassAverage,
	})
}

func (s *Server) documents(w http.ResponseWriter, r *http.Request) {
	docs, err := s.svc.Documents(r.Context())
	if err != nil {
		s.fail(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": lo.Map(docs, func(d store.Document, _ int) documentJSON {
			return documentJSON{
				FileID:     d.ID,
				Filename:   d.Filename,
				SHA256:     d.SHA256,
				ChunkCount: d.ChunkCount,
				CreatedAt:  d.CreatedAt.UTC(),
			}
		}),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

// fail maps service errors to status codes: provider failures are 502,
// expired deadlines 504, anything else 500.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case llm.IsTimeout(err):
		s.logger.Error(op+" timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case llm.IsProviderFailure(err):
		s.logger.Error(op+" failed at provider", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
