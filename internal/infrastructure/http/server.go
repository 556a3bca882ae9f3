// Package http provides the HTTP server infrastructure.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/usecases"
)

// DocumentService is the core API the server exposes.
type DocumentService interface {
	Ingest(ctx context.Context, upload entities.Upload) (usecases.IngestResult, error)
	Answer(ctx context.Context, documentID int64, question string) (entities.Answer, error)
	ListDocuments(ctx context.Context) ([]entities.Document, error)
	GetDocument(ctx context.Context, id int64) (entities.Document, error)
	History(ctx context.Context, id int64) ([]entities.QARecord, error)
	DeleteDocument(ctx context.Context, id int64) error
}

// Options configures the server.
type Options struct {
	Addr            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	// Info is merged into the health response (model names, backend).
	Info map[string]string
}

// Server is the HTTP server for the PDF question answering API.
type Server struct {
	svc      DocumentService
	opts     Options
	logger   arbor.ILogger
	validate *validator.Validate
}

// NewServer creates a new HTTP server.
func NewServer(svc DocumentService, opts Options, logger arbor.ILogger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		svc:      svc,
		opts:     opts,
		logger:   logger,
		validate: validator.New(),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/pdfs", s.handleUpload)
	mux.HandleFunc("GET /api/pdfs", s.handleList)
	mux.HandleFunc("GET /api/pdfs/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/pdfs/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/pdfs/{id}/answer", s.handleAnswer)
	mux.HandleFunc("GET /api/pdfs/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second, // Ingest and generation can be slow
	}

	s.logger.Info().Str("addr", s.opts.Addr).Msg("pdfrag server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("Server shutdown")
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type documentResponse struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	CollectionID string    `json:"collection_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type uploadResponse struct {
	Document documentResponse `json:"document"`
	Pages    int              `json:"pages"`
	Chunks   int              `json:"chunks"`
}

type answerRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type chunkResponse struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
	Offset int    `json:"offset"`
}

type answerResponse struct {
	DocumentID int64           `json:"document_id"`
	RecordID   int64           `json:"record_id"`
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Context    []chunkResponse `json:"context"`
}

type qaRecordResponse struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

func toDocumentResponse(d entities.Document) documentResponse {
	return documentResponse{
		ID:           d.ID,
		Filename:     d.Filename,
		Size:         d.Size,
		CollectionID: d.CollectionID,
		CreatedAt:    d.CreatedAt,
	}
}

// handleUpload ingests a multipart "file" field.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "PDF file not uploaded")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "PDF file not uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}

	result, err := s.svc.Ingest(r.Context(), entities.Upload{Filename: header.Filename, Data: data})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Document: toDocumentResponse(result.Document),
		Pages:    result.Pages,
		Chunks:   result.Chunks,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.svc.ListDocuments(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]documentResponse, len(docs))
	for i, d := range docs {
		out[i] = toDocumentResponse(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := s.svc.GetDocument(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteDocument(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "question is required and must be at most 2000 characters")
		return
	}

	answer, err := s.svc.Answer(r.Context(), id, req.Question)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := answerResponse{
		DocumentID: answer.DocumentID,
		RecordID:   answer.RecordID,
		Question:   answer.Question,
		Answer:     answer.Answer,
		Context:    make([]chunkResponse, len(answer.Context)),
	}
	for i, c := range answer.Context {
		resp.Context[i] = chunkResponse{Text: c.Text, Source: c.Source, Page: c.Page, Offset: c.Offset}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	records, err := s.svc.History(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]qaRecordResponse, len(records))
	for i, rec := range records {
		out[i] = qaRecordResponse{ID: rec.ID, Question: rec.Question, Answer: rec.Answer, CreatedAt: rec.CreatedAt}
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "records": out})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	for k, v := range s.opts.Info {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}

// statusFor maps core error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrNoContext):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		if status == http.StatusInternalServerError {
			writeError(w, status, "internal error")
			return
		}
	} else {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request rejected")
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
