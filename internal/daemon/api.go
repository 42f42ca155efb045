package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"scriptflow/internal/services"
	"scriptflow/internal/session"
)

// routes builds the monitor API router. Probe endpoints are POST to match the
// orchestrator contract the service is deployed under.
func (d *Daemon) routes() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/monitor/liveness", d.handleLiveness).Methods(http.MethodPost)
	router.HandleFunc("/monitor/readiness", d.handleReadiness).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", d.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/sessions", d.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions", d.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id:[0-9]+}", d.handleGetSession).Methods(http.MethodGet)

	return handlers.LoggingHandler(os.Stdout, router)
}

func (d *Daemon) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (d *Daemon) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !d.sched.Running() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "scheduler stopped"})
		return
	}
	if _, err := d.store.Stats(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusResponse struct {
	Running   bool                        `json:"running"`
	Timestamp string                      `json:"timestamp"`
	Total     int64                       `json:"total_sessions"`
	Stages    map[string]map[string]int64 `json:"stages"`
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := d.store.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	stages := make(map[string]map[string]int64, 3)
	for stage, counts := range map[session.Stage]map[session.StageState]int64{
		session.StageEncoding: stats.Encoding,
		session.StageScript:   stats.Script,
		session.StageAnalyze:  stats.Analyze,
	} {
		byState := make(map[string]int64, len(counts))
		for state, count := range counts {
			byState[string(state)] = count
		}
		stages[string(stage)] = byState
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Running:   d.Running(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Total:     stats.Total,
		Stages:    stages,
	})
}

type sessionResponse struct {
	ID               int64  `json:"id"`
	OriginVideoURL   string `json:"origin_video_url"`
	SourceVideoURL   string `json:"source_video_url,omitempty"`
	EncodingVideoURL string `json:"encoding_video_url,omitempty"`
	SourceScriptURL  string `json:"source_script_url,omitempty"`
	EncodingState    string `json:"encoding_state"`
	ScriptState      string `json:"script_state"`
	AnalyzeState     string `json:"analyze_state"`
	ErrorMessage     string `json:"error_message,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func toSessionResponse(sess *session.Session) sessionResponse {
	return sessionResponse{
		ID:               sess.ID,
		OriginVideoURL:   sess.OriginVideoURL,
		SourceVideoURL:   sess.SourceVideoURL,
		EncodingVideoURL: sess.EncodingVideoURL,
		SourceScriptURL:  sess.SourceScriptURL,
		EncodingState:    string(sess.EncodingState),
		ScriptState:      string(sess.ScriptState),
		AnalyzeState:     string(sess.AnalyzeState),
		ErrorMessage:     sess.ErrorMessage,
		CreatedAt:        sess.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        sess.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (d *Daemon) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := d.store.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	out := make([]sessionResponse, len(sessions))
	for i, sess := range sessions {
		out[i] = toSessionResponse(sess)
	}
	writeJSON(w, http.StatusOK, out)
}

type createSessionRequest struct {
	OriginVideoURL string `json:"origin_video_url"`
	ContentType    string `json:"content_type"`
}

type createSessionResponse struct {
	Session   sessionResponse `json:"session"`
	UploadURL string          `json:"upload_url"`
}

// handleCreateSession registers a session for an origin video the client is
// about to upload and returns a presigned PUT URL for it. The session starts
// with the encoding stage READY, so the pipeline picks it up once the upload
// lands.
func (d *Daemon) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sess, err := d.store.Create(r.Context(), req.OriginVideoURL)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	ttl := time.Duration(d.cfg.Storage.PresignTTL) * time.Second
	uploadURL, err := d.blobs.PresignPut(sess.OriginVideoURL, req.ContentType, ttl)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		Session:   toSessionResponse(sess),
		UploadURL: uploadURL,
	})
}

func (d *Daemon) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	sess, err := d.store.GetByID(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func isNotFound(err error) bool {
	return errors.Is(err, services.ErrSessionNotFound) || errors.Is(err, services.ErrNotFound)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
