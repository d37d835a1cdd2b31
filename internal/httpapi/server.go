// Package httpapi serves the question answering engine over HTTP.
//
// Routes:
//
//	POST /api/v1/corpus          upload a table (multipart field "file")
//	POST /api/v1/ask             {"question": "...", "k": 3}
//	GET  /api/v1/documents/{id}  original text of one row
//	GET  /api/v1/status          live index summary
//	GET  /healthz                liveness
//	GET  /metrics                Prometheus scrape
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"csvqa/internal/domain"
	"csvqa/internal/logger"
	"csvqa/internal/metrics"
	"csvqa/internal/service"
)

const (
	defaultMaxUpload = 32 << 20
	multipartMemory  = 8 << 20
)

// Options tunes the HTTP host.
type Options struct {
	RateLimit      float64 // requests per second, <= 0 disables limiting
	Burst          int
	MaxUploadBytes int64
}

// Server exposes a QAService as a JSON API.
type Server struct {
	svc       *service.QAService
	metrics   *metrics.Metrics
	log       *logrus.Entry
	limiter   *rate.Limiter
	maxUpload int64
	mux       *http.ServeMux
}

// NewServer builds the route table. m may be nil.
func NewServer(svc *service.QAService, m *metrics.Metrics, log *logrus.Entry, opts Options) *Server {
	if log == nil {
		log = logger.Discard()
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	s := &Server{
		svc:       svc,
		metrics:   m,
		log:       log,
		limiter:   rate.NewLimiter(limit, burst),
		maxUpload: maxUpload,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/v1/corpus", s.handleCorpus)
	s.mux.HandleFunc("POST /api/v1/ask", s.handleAsk)
	s.mux.HandleFunc("GET /api/v1/documents/{id}", s.handleDocument)
	s.mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the routes wrapped in the middleware chain:
// request id, access log, metrics, rate limit.
func (s *Server) Handler() http.Handler {
	var chain http.Handler = s.mux
	chain = s.rateLimit(chain)
	chain = s.instrument(chain)
	chain = s.accessLog(chain)
	chain = s.requestID(chain)
	return chain
}

// Responses

type errorResponse struct {
	Error string `json:"error"`
}

type corpusResponse struct {
	Status string `json:"status"`
	*service.LoadResult
}

type askRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

type matchView struct {
	ID    int     `json:"id"`
	Key   string  `json:"key"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type askResponse struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Results  []matchView `json:"results"`
}

type documentResponse struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type statusResponse struct {
	State     string     `json:"state"`
	Source    string     `json:"source,omitempty"`
	Documents int        `json:"documents"`
	Terms     int        `json:"terms"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
}

// Handlers

func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.fail(w, r, statusFor(err, http.StatusBadRequest), err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "form field 'file' is required"})
		return
	}
	defer file.Close()

	res, err := s.svc.LoadReader(file, header.Filename)
	if err != nil {
		s.fail(w, r, statusFor(err, http.StatusBadRequest), err)
		return
	}
	jsonResponse(w, http.StatusOK, corpusResponse{Status: res.Status(), LoadResult: res})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if req.Question == "" {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	matches, err := s.svc.Query(req.Question, req.K)
	if err != nil {
		s.fail(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	resp := askResponse{
		Question: req.Question,
		Answer:   service.FormatMatches(matches),
		Results:  make([]matchView, len(matches)),
	}
	for i, m := range matches {
		resp.Results[i] = matchView{ID: m.Doc.ID, Key: m.Doc.Key, Score: m.Score, Text: m.Doc.Text}
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "id must be an integer"})
		return
	}
	text, err := s.svc.Engine().Text(id)
	if err != nil {
		s.fail(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	jsonResponse(w, http.StatusOK, documentResponse{ID: id, Text: text})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.svc.Engine().Stats()
	resp := statusResponse{
		State:     st.State.String(),
		Source:    st.Source,
		Documents: st.Documents,
		Terms:     st.Terms,
	}
	if !st.LoadedAt.IsZero() {
		resp.LoadedAt = &st.LoadedAt
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, code int, err error) {
	entry := requestLogger(r, s.log).WithError(err).WithField("status", code)
	if code >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	jsonResponse(w, code, errorResponse{Error: service.UserMessage(err)})
}

// statusFor maps domain errors to HTTP status codes, falling back to def.
func statusFor(err error, def int) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrEmptyIndex):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrEmptyCorpus), errors.Is(err, domain.ErrNoTextColumns):
		return http.StatusUnprocessableEntity
	default:
		return def
	}
}

func jsonResponse(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
