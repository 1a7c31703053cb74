package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/contract"
	"github.com/ericksa/contractlens/internal/extract"
	"github.com/ericksa/contractlens/internal/service"
	"github.com/ericksa/contractlens/internal/standards"
)

const Prefix = "/api/v1"

const defaultMaxUpload = 32 << 20

// Server exposes the analyzer over HTTP
type Server struct {
	analyzer  *service.Analyzer
	logger    *zap.Logger
	maxUpload int64
}

func NewServer(analyzer *service.Analyzer, logger *zap.Logger, maxUpload int64) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Server{analyzer: analyzer, logger: logger, maxUpload: maxUpload}
}

// Register mounts the routes on r
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/", s.root).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	v1 := r.PathPrefix(Prefix).Subrouter()
	v1.HandleFunc("/analyze", s.analyze).Methods(http.MethodPost)
	v1.HandleFunc("/compare", s.compare).Methods(http.MethodPost)
	v1.HandleFunc("/chat", s.chat).Methods(http.MethodPost)
	v1.HandleFunc("/standards", s.listStandards).Methods(http.MethodGet)
	v1.HandleFunc("/audit", s.auditLog).Methods(http.MethodGet)
	v1.HandleFunc("/health", s.health).Methods(http.MethodGet)
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "API Server is running"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	standardID := r.FormValue("standard_id")
	if standardID == "" {
		writeError(w, http.StatusBadRequest, "missing form field standard_id")
		return
	}
	doc, err := formFile(r, "company_document")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.analyzer.AnalyzeDocument(r.Context(), standardID, doc)
	if err != nil {
		s.fail(w, "analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	model, err := formFile(r, "model_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proposal, err := formFile(r, "proposal_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.analyzer.CompareDocuments(r.Context(), model, proposal)
	if err != nil {
		s.fail(w, "comparison", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req contract.ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, s.maxUpload)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid chat payload: %v", err))
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question cannot be empty")
		return
	}
	writeJSON(w, http.StatusOK, s.analyzer.Chat(r.Context(), req))
}

func (s *Server) listStandards(w http.ResponseWriter, r *http.Request) {
	ids, err := s.analyzer.ListStandards(r.Context())
	if err != nil {
		s.fail(w, "listing standards", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"standards": ids})
}

func (s *Server) auditLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	entries, err := s.analyzer.AuditLog(r.Context(), limit)
	if err != nil {
		s.fail(w, "reading audit log", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return fmt.Errorf("invalid multipart form: %v", err)
	}
	return nil
}

func formFile(r *http.Request, field string) (service.Upload, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		return service.Upload{}, fmt.Errorf("missing file field %s", field)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, fmt.Errorf("failed to read %s: %v", field, err)
	}
	return service.Upload{Filename: header.Filename, Data: data}, nil
}

// fail maps domain errors onto HTTP status codes
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat), errors.Is(err, extract.ErrCorruptDocument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, standards.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error during %s: %v", op, err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
