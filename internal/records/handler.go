package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymlog/internal/backend"
	"github.com/2beens/gymlog/internal/middleware"
	"github.com/2beens/gymlog/internal/telemetry/metrics"
	"github.com/2beens/gymlog/internal/telemetry/tracing"
	"github.com/2beens/gymlog/internal/workout"
	"github.com/2beens/gymlog/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=records_mocks_test.go -package=records_test

type recordsRepo interface {
	ListTimestamps(ctx context.Context) ([]int64, error)
	GetLift(ctx context.Context, timestamp int64) (*workout.Lift, error)
	GetRun(ctx context.Context, timestamp int64) (*workout.Run, error)
	Add(ctx context.Context, record workout.Record) error
	Delete(ctx context.Context, timestamp int64) error
}

const maxBodyBytes = 1 << 16

var emptyObject = []byte("{}")

type Handler struct {
	repo           recordsRepo
	metricsManager *metrics.Manager
}

func NewHandler(repo recordsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

// SetupRoutes registers the store API. Entering workouts is rate limited
// when a limiter is given.
func (handler *Handler) SetupRoutes(
	router *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	enterWorkoutAllowedPerMin int,
) {
	var enterWorkout http.Handler = http.HandlerFunc(handler.HandleEnterWorkout)
	if rateLimiter != nil && enterWorkoutAllowedPerMin > 0 {
		enterWorkout = middleware.RateLimit(rateLimiter, "enter-workout", enterWorkoutAllowedPerMin, handler.metricsManager)(enterWorkout)
	}

	router.HandleFunc(backend.PathListTimestamps, handler.HandleListTimestamps).Methods("POST", "OPTIONS").Name("list-timestamps")
	router.HandleFunc(backend.PathFetchLift, handler.HandleGetLift).Methods("POST", "OPTIONS").Name("get-lift")
	router.HandleFunc(backend.PathFetchRun, handler.HandleGetRun).Methods("POST", "OPTIONS").Name("get-run")
	router.Handle(backend.PathEnterWorkout, enterWorkout).Methods("POST", "OPTIONS").Name("enter-workout")
	router.HandleFunc(backend.PathDeleteTimestamp, handler.HandleDeleteTimestamp).Methods("POST", "OPTIONS").Name("delete-timestamp")
}

func readTimestamp(r *http.Request) (int64, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp: %w", err)
	}
	if ts <= 0 {
		return 0, workout.ErrInvalidTimestamp
	}
	return ts, nil
}

func (handler *Handler) HandleListTimestamps(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.listTimestamps")
	defer span.End()

	timestamps, err := handler.repo.ListTimestamps(ctx)
	if err != nil {
		log.Errorf("list timestamps: %s", err)
		http.Error(w, "failed to list timestamps", http.StatusInternalServerError)
		return
	}

	timestampsJson, err := json.Marshal(timestamps)
	if err != nil {
		log.Errorf("marshal timestamps: %s", err)
		http.Error(w, "failed to list timestamps", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, timestampsJson, http.StatusOK)
}

func (handler *Handler) HandleGetLift(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.getLift")
	defer span.End()

	ts, err := readTimestamp(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lift, err := handler.repo.GetLift(ctx, ts)
	if err != nil {
		log.Errorf("get lift %d: %s", ts, err)
		http.Error(w, "failed to get lift", http.StatusNotFound)
		return
	}
	if lift == nil {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, emptyObject, http.StatusOK)
		return
	}

	liftJson, err := json.Marshal(lift)
	if err != nil {
		log.Errorf("marshal lift %d: %s", ts, err)
		http.Error(w, "failed to get lift", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, liftJson, http.StatusOK)
}

func (handler *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.getRun")
	defer span.End()

	ts, err := readTimestamp(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := handler.repo.GetRun(ctx, ts)
	if err != nil {
		log.Errorf("get run %d: %s", ts, err)
		http.Error(w, "failed to get run", http.StatusNotFound)
		return
	}
	if run == nil {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, emptyObject, http.StatusOK)
		return
	}

	runJson, err := json.Marshal(run)
	if err != nil {
		log.Errorf("marshal run %d: %s", ts, err)
		http.Error(w, "failed to get run", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, runJson, http.StatusOK)
}

func (handler *Handler) HandleEnterWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.enterWorkout")
	defer span.End()

	var payload workout.Payload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		log.Errorf("enter workout, unmarshal payload: %s", err)
		http.Error(w, "invalid workout payload", http.StatusBadRequest)
		return
	}

	record, err := payload.Record()
	if err != nil {
		log.Debugf("enter workout %d, invalid payload: %s", payload.Timestamp, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Add(ctx, record); err != nil {
		if errors.Is(err, ErrTimestampExists) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("enter workout %d: %s", record.Timestamp(), err)
		http.Error(w, "failed to enter workout", http.StatusBadRequest)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterWorkoutsEntered.WithLabelValues(record.Kind().String()).Inc()
	}
	log.Debugf("workout entered: %s", record)
	w.WriteHeader(http.StatusCreated)
}

func (handler *Handler) HandleDeleteTimestamp(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.deleteTimestamp")
	defer span.End()

	ts, err := readTimestamp(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, ts); err != nil {
		if errors.Is(err, ErrTimestampNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("delete timestamp %d: %s", ts, err)
		http.Error(w, "failed to delete timestamp", http.StatusBadRequest)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterWorkoutsDeleted.Inc()
	}
	log.Debugf("timestamp %d deleted", ts)
	w.WriteHeader(http.StatusNoContent)
}
