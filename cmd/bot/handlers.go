package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/repwatch/reputation-bot/internal/config"
	"github.com/repwatch/reputation-bot/internal/ingestion"
	"github.com/repwatch/reputation-bot/internal/recommend"
	"github.com/repwatch/reputation-bot/internal/reputation"
	"github.com/repwatch/reputation-bot/internal/storage"
	"github.com/repwatch/reputation-bot/internal/store"
	"github.com/sirupsen/logrus"
)

// apiServer exposes the read surface consumers (dashboards, alerting) poll,
// plus a manual trigger for testing
type apiServer struct {
	config     *config.Config
	store      *store.Store
	pipeline   *ingestion.Pipeline
	aggregator *reputation.Aggregator
	engine     *recommend.Engine
	archive    storage.StorageInterface
}

func newRouter(a *apiServer) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", a.healthHandler).Methods("GET")
	router.HandleFunc("/metrics", a.metricsHandler).Methods("GET")
	router.HandleFunc("/trigger", a.triggerHandler).Methods("POST")
	router.HandleFunc("/entities/{id}/score", a.scoreHandler).Methods("GET")
	router.HandleFunc("/entities/{id}/spike", a.spikeHandler).Methods("GET")
	router.HandleFunc("/entities/{id}/recommendation", a.latestRecommendationHandler).Methods("GET")
	router.HandleFunc("/entities/{id}/recommendations", a.generateRecommendationHandler).Methods("POST")
	router.HandleFunc("/reports", a.listReportsHandler).Methods("GET")
	router.HandleFunc("/reports/{name}", a.getReportHandler).Methods("GET")
	return router
}

func (a *apiServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *apiServer) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(a.pipeline.GetMetrics()))
}

func (a *apiServer) triggerHandler(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := contextWithTimeout()
		defer cancel()
		if _, err := a.pipeline.Ingest(ctx); err != nil {
			logrus.Errorf("Manual ingestion trigger failed: %v", err)
			return
		}
		if _, err := a.pipeline.AnalyzeBacklog(ctx); err != nil {
			logrus.Errorf("Manual backlog analysis failed: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Ingestion triggered"})
}

func (a *apiServer) scoreHandler(w http.ResponseWriter, r *http.Request) {
	entityID, ok := entityIDFrom(w, r)
	if !ok {
		return
	}

	windowHours := queryInt(r, "window_hours", a.config.ScoreWindowHours)

	score, err := a.aggregator.RollingScore(entityID, windowHours, a.config.DecayLambda)
	if errors.Is(err, reputation.ErrNoData) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"entity_id":    entityID,
			"window_hours": windowHours,
			"available":    false,
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entity_id":    entityID,
		"window_hours": windowHours,
		"available":    true,
		"score":        score,
	})
}

func (a *apiServer) spikeHandler(w http.ResponseWriter, r *http.Request) {
	entityID, ok := entityIDFrom(w, r)
	if !ok {
		return
	}

	windowHours := queryInt(r, "window_hours", a.config.SpikeWindowHours)
	threshold := queryInt(r, "threshold", a.config.SpikeThreshold)

	spike, err := a.aggregator.IsNegativeSpike(entityID, windowHours, threshold)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entity_id":    entityID,
		"window_hours": windowHours,
		"threshold":    threshold,
		"spike":        spike,
	})
}

func (a *apiServer) latestRecommendationHandler(w http.ResponseWriter, r *http.Request) {
	entityID, ok := entityIDFrom(w, r)
	if !ok {
		return
	}

	rec, err := a.store.LatestRecommendation(entityID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no recommendation yet"})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (a *apiServer) generateRecommendationHandler(w http.ResponseWriter, r *http.Request) {
	entityID, ok := entityIDFrom(w, r)
	if !ok {
		return
	}

	windowHours := queryInt(r, "window_hours", a.config.RecommendationWindowHours)

	rec, err := a.engine.Generate(entityID, windowHours)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (a *apiServer) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	names, err := a.archive.List(r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": names})
}

func (a *apiServer) getReportHandler(w http.ResponseWriter, r *http.Request) {
	data, err := a.archive.Retrieve(mux.Vars(r)["name"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Minute)
}

func entityIDFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entity id"})
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	logrus.Errorf("Request failed: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
