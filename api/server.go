// Package api serves read-only punishment status over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"punish-bot/model"
	"punish-bot/utils/async"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Engine is the read side of the punishment service.
type Engine interface {
	GetPunishments(ctx context.Context, target model.Identity) *async.Future[[]model.Punishment]
	GetActivePunishment(ctx context.Context, target model.Identity, typ model.PunishmentType) *async.Future[*model.Punishment]
}

// Server exposes punishment status, paged history and metrics.
type Server struct {
	engine   Engine
	gatherer prometheus.Gatherer
	Timeout  time.Duration
}

func NewServer(engine Engine, gatherer prometheus.Gatherer) *Server {
	return &Server{engine: engine, gatherer: gatherer, Timeout: 10 * time.Second}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1/users/{userID}", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Printf("[PunishAPI] Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type punishmentResponse struct {
	ID         int64      `json:"id"`
	Type       string     `json:"type"`
	TargetID   string     `json:"target_id"`
	TargetName string     `json:"target_name,omitempty"`
	PunisherID string     `json:"punisher_id"`
	Reason     *string    `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Lifted     bool       `json:"lifted"`
	LiftedByID string     `json:"lifted_by_id,omitempty"`
	LiftedAt   *time.Time `json:"lifted_at,omitempty"`
	Silent     bool       `json:"silent"`
}

func toResponse(p model.Punishment) punishmentResponse {
	resp := punishmentResponse{
		ID:         p.ID,
		Type:       p.Type.String(),
		TargetID:   p.Target.ID,
		TargetName: p.Target.Name,
		PunisherID: p.Punisher.ID,
		Reason:     p.Reason,
		CreatedAt:  p.CreatedAt,
		ExpiresAt:  p.ExpiresAt(),
		Lifted:     p.Lifted,
		LiftedAt:   p.LiftedAt,
		Silent:     p.Silent,
	}
	if p.LiftedBy != nil {
		resp.LiftedByID = p.LiftedBy.ID
	}
	return resp
}

type statusResponse struct {
	Status            string               `json:"status"`
	ActivePunishments []punishmentResponse `json:"active_punishments"`
}

type historyResponse struct {
	Punishments  []punishmentResponse `json:"punishments"`
	TotalRecords int                  `json:"total_records"`
	TotalPages   int                  `json:"total_pages"`
	CurrentPage  int                  `json:"current_page"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.Timeout)
	defer cancel()
	target := model.UnresolvedIdentity(chi.URLParam(r, "userID"))

	bans := s.engine.GetActivePunishment(ctx, target, model.PunishmentBan)
	mutes := s.engine.GetActivePunishment(ctx, target, model.PunishmentMute)

	resp := statusResponse{Status: "none", ActivePunishments: []punishmentResponse{}}
	for _, f := range []*async.Future[*model.Punishment]{bans, mutes} {
		active, err := f.Await(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		if active != nil {
			resp.ActivePunishments = append(resp.ActivePunishments, toResponse(*active))
		}
	}
	if len(resp.ActivePunishments) > 0 {
		resp.Status = "active"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.Timeout)
	defer cancel()
	target := model.UnresolvedIdentity(chi.URLParam(r, "userID"))

	page := queryInt(r, "page", 1)
	if page <= 0 {
		page = 1
	}
	pageSize := queryInt(r, "page_size", defaultPageSize)
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	all, err := s.engine.GetPunishments(ctx, target).Await(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := historyResponse{
		Punishments:  []punishmentResponse{},
		TotalRecords: len(all),
		TotalPages:   int(math.Ceil(float64(len(all)) / float64(pageSize))),
		CurrentPage:  page,
	}
	offset := (page - 1) * pageSize
	if offset < len(all) {
		end := min(offset+pageSize, len(all))
		for _, p := range all[offset:end] {
			resp.Punishments = append(resp.Punishments, toResponse(p))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[PunishAPI] Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case model.IsStorageError(err):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	log.Printf("[PunishAPI] Request failed: %v", err)
	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}
