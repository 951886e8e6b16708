// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"campground_ingest/internal/app"
	"campground_ingest/internal/domain"
)

type Handlers struct {
	Q      *app.QueryService
	Ingest *app.IngestionService
}

type problem struct {
	Type    string             `json:"type"`
	Title   string             `json:"title"`
	Status  int                `json:"status"`
	Detail  string             `json:"detail,omitempty"`
	Summary *domain.RunSummary `json:"summary,omitempty"`
}

const (
	readTimeout  = 15 * time.Second
	fetchTimeout = 5 * time.Minute
)

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(readTimeout))
		r.Get("/v1/campgrounds/{id}", h.getCampground)
	})

	// an ingestion run can outlive the read timeout (retries, slow upstream)
	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(fetchTimeout))
		r.Post("/v1/dyrt/fetch", h.fetch)
		r.Get("/v1/dyrt/fetch", h.fetch)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemWith(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemWith(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func (h *Handlers) getCampground(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.Q.GetCampground(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "campground not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("get campground failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "lookup failed")
		return
	}

	etag, body := calcETagAndBody(c)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getCampground body")
	}
}

// parseTrigger reads the fetch query parameters, applying defaults for absent ones.
func parseTrigger(r *http.Request) (domain.TriggerRequest, error) {
	q := r.URL.Query()
	t := domain.TriggerRequest{
		Component:  q.Get("component"),
		Sort:       q.Get("sort"),
		PageNumber: 1,
		PageSize:   1,
	}
	var err error
	if v := q.Get("page_number"); v != "" {
		if t.PageNumber, err = strconv.Atoi(v); err != nil {
			return t, errors.New("page_number must be an integer")
		}
	}
	if v := q.Get("page_size"); v != "" {
		if t.PageSize, err = strconv.Atoi(v); err != nil {
			return t, errors.New("page_size must be an integer")
		}
	}
	if v := q.Get("persist"); v != "" {
		if t.Persist, err = strconv.ParseBool(v); err != nil {
			return t, errors.New("persist must be a boolean")
		}
	}
	return t, nil
}

func (h *Handlers) fetch(w http.ResponseWriter, r *http.Request) {
	t, err := parseTrigger(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}
	req, err := t.FetchRequest()
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}

	sum, err := h.Ingest.RunOnce(r.Context(), domain.TriggerOnDemand, req)
	var fe *domain.FetchError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sum)
	case errors.As(err, &fe):
		writeProblemWith(w, problem{Type: "about:blank", Title: "Upstream fetch failed", Status: http.StatusBadGateway, Detail: err.Error(), Summary: &sum})
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeProblemWith(w, problem{Type: "about:blank", Title: "Run canceled", Status: http.StatusGatewayTimeout, Detail: err.Error(), Summary: &sum})
	default:
		writeProblemWith(w, problem{Type: "about:blank", Title: "Run failed", Status: http.StatusInternalServerError, Detail: err.Error(), Summary: &sum})
	}
}
