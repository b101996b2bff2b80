// Package handler exposes the training log over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/liftlog/internal/auth"
	"github.com/2beens/liftlog/internal/middleware"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/internal/workouts/coach"
	"github.com/2beens/liftlog/internal/workouts/kpi"
	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/pipeline"
	"github.com/2beens/liftlog/internal/workouts/program"
	"github.com/2beens/liftlog/internal/workouts/session"
	"github.com/2beens/liftlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// how long a request waits for the first logs snapshot of a user
const viewsWaitTimeout = 3 * time.Second

type sessionRegistry interface {
	For(ctx context.Context, userID string, date time.Time) (*session.Session, error)
}

type viewsProvider interface {
	Views(ctx context.Context, userID string) (pipeline.Views, error)
}

type recoveryStore interface {
	UpsertRecovery(ctx context.Context, userID, date string, rec logs.RecoveryLog) error
}

type adviser interface {
	Advise(ctx context.Context, prompt string) (string, error)
}

type Params struct {
	Program  *program.Program
	Sessions sessionRegistry
	Views    viewsProvider
	Recovery recoveryStore
	Coach    adviser
	// Now defaults to time.Now, used when a request carries no date
	Now func() time.Time
}

type Handler struct {
	program  *program.Program
	sessions sessionRegistry
	views    viewsProvider
	recovery recoveryStore
	coach    adviser
	now      func() time.Time
}

func NewHandler(params Params) *Handler {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		program:  params.Program,
		sessions: params.Sessions,
		views:    params.Views,
		recovery: params.Recovery,
		coach:    params.Coach,
		now:      now,
	}
}

func (h *Handler) SetupRoutes(
	r *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
	coachAllowedPerMin int,
) {
	r.HandleFunc("/workouts/today", h.HandleToday).Methods("GET", "OPTIONS").Name("workouts-today")
	r.HandleFunc("/workouts/next", h.HandleNext).Methods("GET", "OPTIONS").Name("workouts-next")
	r.HandleFunc("/workouts/{date}/exercises/{exerciseId}/sets/{set}", h.HandleUpdateSet).
		Methods("PUT", "OPTIONS").Name("workouts-update-set")
	r.HandleFunc("/kpis", h.HandleKPIs).Methods("GET", "OPTIONS").Name("kpis")
	r.HandleFunc("/program", h.HandleProgram).Methods("GET", "OPTIONS").Name("program")
	r.HandleFunc("/recovery/{date}", h.HandleUpsertRecovery).Methods("PUT", "OPTIONS").Name("recovery-upsert")

	coachRouter := r.PathPrefix("/coach").Subrouter()
	coachRouter.HandleFunc("/advice", h.HandleCoachAdvice).Methods("POST", "OPTIONS").Name("coach-advice")
	coachRouter.Use(middleware.RateLimit(rateLimiter, "coach", coachAllowedPerMin, metricsManager))
}

func userIDOrUnauthorized(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
	}
	return userID, ok
}

func writeJSON(w http.ResponseWriter, v any, statusCode int) {
	resp, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "marshal response error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, statusCode)
}

// requestDate reads the date from the value, today in UTC when empty.
func (h *Handler) requestDate(value string) (time.Time, error) {
	if value == "" {
		return h.now().UTC(), nil
	}
	return logs.ParseDate(value)
}

func (h *Handler) HandleToday(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.today")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	date, err := h.requestDate(r.URL.Query().Get("date"))
	if err != nil {
		span.SetStatus(codes.Error, "invalid date")
		http.Error(w, "invalid date, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("date", logs.DateKey(date)))

	s, err := h.sessions.For(ctx, userID, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("load session [%s] for [%s]: %s", logs.DateKey(date), userID, err)
		http.Error(w, "logs unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, s.View(), http.StatusOK)
}

func (h *Handler) HandleUpdateSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.updateSet")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	date, err := logs.ParseDate(vars["date"])
	if err != nil {
		http.Error(w, "invalid date, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	exerciseID, err := strconv.Atoi(vars["exerciseId"])
	if err != nil {
		http.Error(w, "invalid exercise id", http.StatusBadRequest)
		return
	}
	set, err := strconv.Atoi(vars["set"])
	if err != nil {
		http.Error(w, "invalid set", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("date", vars["date"]),
		attribute.Int("exercise.id", exerciseID),
		attribute.Int("set", set),
	)

	toggle := r.URL.Query().Get("toggle") == "true"
	var update session.SetUpdate
	if !toggle {
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, "invalid set update", http.StatusBadRequest)
			return
		}
	}

	s, err := h.sessions.For(ctx, userID, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("load session [%s] for [%s]: %s", vars["date"], userID, err)
		http.Error(w, "logs unavailable", http.StatusServiceUnavailable)
		return
	}

	var view session.View
	if toggle {
		view, err = s.ToggleDone(ctx, exerciseID, set)
	} else {
		view, err = s.UpdateSet(ctx, exerciseID, set, update)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(w, err.Error(), setErrorStatus(err))
		return
	}

	writeJSON(w, view, http.StatusOK)
}

func setErrorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNoWorkout):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnknownExercise):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidSet):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// readyViews returns the user's views, writing 503 when the first snapshot
// did not arrive in time.
func (h *Handler) readyViews(ctx context.Context, w http.ResponseWriter, userID string) (pipeline.Views, bool) {
	waitCtx, cancel := context.WithTimeout(ctx, viewsWaitTimeout)
	defer cancel()

	views, err := h.views.Views(waitCtx, userID)
	if err != nil {
		log.Errorf("get views for [%s]: %s", userID, err)
		http.Error(w, "logs unavailable", http.StatusServiceUnavailable)
		return pipeline.Views{}, false
	}
	if !views.Ready {
		http.Error(w, "logs not loaded yet", http.StatusServiceUnavailable)
		return pipeline.Views{}, false
	}
	return views, true
}

type nextResponse struct {
	Version int64                      `json:"version"`
	Next    *program.WorkoutDefinition `json:"next"`
}

func (h *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.next")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}
	views, ok := h.readyViews(ctx, w, userID)
	if !ok {
		span.SetStatus(codes.Error, "views not ready")
		return
	}

	writeJSON(w, nextResponse{Version: views.Version, Next: views.NextInRotation}, http.StatusOK)
}

type kpisResponse struct {
	Version int64 `json:"version"`
	kpi.KPIs
}

func (h *Handler) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.kpis")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}
	views, ok := h.readyViews(ctx, w, userID)
	if !ok {
		span.SetStatus(codes.Error, "views not ready")
		return
	}

	writeJSON(w, kpisResponse{Version: views.Version, KPIs: views.KPIs}, http.StatusOK)
}

type programResponse struct {
	Rotation     []program.Slot              `json:"rotation"`
	LoadStep     float64                     `json:"loadStep"`
	LoadIncrease float64                     `json:"loadIncrease"`
	Workouts     []program.WorkoutDefinition `json:"workouts"`
}

func (h *Handler) HandleProgram(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, programResponse{
		Rotation:     h.program.Rotation(),
		LoadStep:     h.program.LoadStep(),
		LoadIncrease: h.program.LoadIncrease(),
		Workouts:     h.program.Workouts(),
	}, http.StatusOK)
}

func (h *Handler) HandleUpsertRecovery(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.upsertRecovery")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	date, err := logs.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		http.Error(w, "invalid date, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var rec logs.RecoveryLog
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid recovery log", http.StatusBadRequest)
		return
	}
	if err := rec.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dateKey := logs.DateKey(date)
	if err := h.recovery.UpsertRecovery(ctx, userID, dateKey, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("upsert recovery [%s] for [%s]: %s", dateKey, userID, err)
		http.Error(w, "save recovery log failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"date":%q}`, dateKey))
}

type adviceRequest struct {
	Date string `json:"date"`
}

type adviceResponse struct {
	Date   string `json:"date"`
	Advice string `json:"advice"`
}

func (h *Handler) HandleCoachAdvice(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutsHandler.coachAdvice")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req adviceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid advice request", http.StatusBadRequest)
			return
		}
	}
	date, err := h.requestDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	dateKey := logs.DateKey(date)

	views, ok := h.readyViews(ctx, w, userID)
	if !ok {
		span.SetStatus(codes.Error, "views not ready")
		return
	}
	s, err := h.sessions.For(ctx, userID, date)
	if err != nil {
		log.Errorf("load session [%s] for [%s]: %s", dateKey, userID, err)
		http.Error(w, "logs unavailable", http.StatusServiceUnavailable)
		return
	}

	view := s.View()
	in := coach.PromptInput{
		Date:        dateKey,
		KPIs:        views.KPIs,
		Today:       view.Log,
		Predictions: view.Predictions,
	}
	if rec, ok := views.Recovery[dateKey]; ok {
		in.Recovery = &rec
	}

	advice, err := h.coach.Advise(ctx, coach.BuildPrompt(in))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warnf("coach advice for [%s]: %s", userID, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, adviceResponse{Date: dateKey, Advice: advice}, http.StatusOK)
}
