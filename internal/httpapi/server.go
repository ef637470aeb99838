package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/apimonitor/internal/httpapi/middleware"
	"github.com/hamed0406/apimonitor/internal/monitor"
	"github.com/hamed0406/apimonitor/internal/repo"
)

const serviceName = "api-monitor"

type Server struct {
	Logger         *zap.Logger
	Monitor        *monitor.Service
	AllowedOrigins []string

	validate *validator.Validate
}

func NewServer(l *zap.Logger, svc *monitor.Service, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{
		Logger:         l,
		Monitor:        svc,
		AllowedOrigins: allowedOrigins,
		validate:       newValidator(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimw.RequestLogger(s.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Not Found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Detail: "Method Not Allowed"})
	})

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/monitor", s.handleMonitor)
		r.Get("/results", s.handleListResults)
		r.Get("/results/filter/healthy", s.handleFilteredResults(true))
		r.Get("/results/filter/unhealthy", s.handleFilteredResults(false))
		r.Get("/results/search", s.handleSearchResults)
		r.Get("/results/{id}", s.handleGetResult)
		r.Get("/stats", s.handleStats)
	})

	return r
}

type errorBody struct {
	Detail string `json:"detail"`
}

type validationErrorBody struct {
	Detail validationErrors `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeValidation(w http.ResponseWriter, r *http.Request, errs validationErrors) {
	s.Logger.Debug("request_rejected",
		zap.String("path", r.URL.Path),
		zap.String("reason", errs.Error()),
	)
	writeJSON(w, http.StatusUnprocessableEntity, validationErrorBody{Detail: errs})
}

// writeStoreError logs err and answers with a generic 500.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.Logger.Error("store_error",
		zap.String("op", op),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "Internal Server Error"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "API Monitoring Service is running",
		"service": serviceName,
		"api":     "/api/v1",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	req, verrs := s.decodeMonitorRequest(w, r)
	if len(verrs) > 0 {
		s.writeValidation(w, r, verrs)
		return
	}

	res, err := s.Monitor.Record(r.Context(), req.URL)
	if err != nil {
		s.writeStoreError(w, r, "record", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, repo.Filter{})
}

func (s *Server) handleFilteredResults(healthy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.servePage(w, r, repo.Filter{Healthy: &healthy})
	}
}

func (s *Server) handleSearchResults(w http.ResponseWriter, r *http.Request) {
	sq, verrs := s.parseSearchQuery(r)
	if len(verrs) > 0 {
		// report paging problems in the same response
		if _, perrs := s.parsePageQuery(r); len(perrs) > 0 {
			verrs = append(verrs, perrs...)
		}
		s.writeValidation(w, r, verrs)
		return
	}
	s.servePage(w, r, repo.Filter{URLContains: sq.URL})
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, f repo.Filter) {
	pq, verrs := s.parsePageQuery(r)
	if len(verrs) > 0 {
		s.writeValidation(w, r, verrs)
		return
	}

	page, err := s.Monitor.GetPage(r.Context(), monitor.PageRequest{
		Page:     pq.Page,
		PageSize: pq.PageSize,
		Filter:   f,
	})
	if err != nil {
		s.writeStoreError(w, r, "get_page", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, verrs := parseID(raw)
	if len(verrs) > 0 {
		s.writeValidation(w, r, verrs)
		return
	}

	res, err := s.Monitor.GetByID(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{
			Detail: fmt.Sprintf("Monitoring result with ID %d not found", id),
		})
		return
	}
	if err != nil {
		s.writeStoreError(w, r, "get_by_id", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Monitor.Stats(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
