package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/arbor"
)

// SessionRequest identifies a recorded game session.
type SessionRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=256"`
}

// TurnRequest identifies one turn of a session.
type TurnRequest struct {
	SessionID  string `json:"sessionId" validate:"required,max=256"`
	TurnNumber *int   `json:"turnNumber" validate:"required,gte=0"`
}

// IterationRequest identifies one search iteration of a turn.
type IterationRequest struct {
	SessionID       string `json:"sessionId" validate:"required,max=256"`
	TurnNumber      *int   `json:"turnNumber" validate:"required,gte=0"`
	IterationNumber *int   `json:"iterationNumber" validate:"required,gte=0"`
}

// ExistsResponse is returned by POST /gamesession/exists.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// SessionExists handles POST /gamesession/exists.
func (s *Server) SessionExists(w http.ResponseWriter, r *http.Request) {
	var body SessionRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.respond(w, http.StatusOK, ExistsResponse{Exists: s.Sessions.SessionExists(r.Context(), body.SessionID)})
}

// AvailableTurns handles POST /gamesession/turns.
func (s *Server) AvailableTurns(w http.ResponseWriter, r *http.Request) {
	var body SessionRequest
	if !s.decode(w, r, &body) {
		return
	}
	turns, err := s.Sessions.AvailableTurns(r.Context(), body.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, turns)
}

// GrowthSteps handles POST /gamesession/turn/growth.
func (s *Server) GrowthSteps(w http.ResponseWriter, r *http.Request) {
	var body TurnRequest
	if !s.decode(w, r, &body) {
		return
	}
	steps, err := s.Sessions.GrowthSteps(r.Context(), body.SessionID, *body.TurnNumber)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, steps)
}

// ReplayGrowth handles POST /gamesession/turn/replay.
func (s *Server) ReplayGrowth(w http.ResponseWriter, r *http.Request) {
	var body TurnRequest
	if !s.decode(w, r, &body) {
		return
	}
	steps, err := s.Sessions.ReplayGrowth(r.Context(), body.SessionID, *body.TurnNumber)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, steps)
}

// TreeForTurn handles POST /gamesession/turn/tree.
func (s *Server) TreeForTurn(w http.ResponseWriter, r *http.Request) {
	var body TurnRequest
	if !s.decode(w, r, &body) {
		return
	}
	tree, err := s.Sessions.TreeForTurn(r.Context(), body.SessionID, *body.TurnNumber)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, tree)
}

// IterationDetails handles POST /gamesession/turn/iteration.
func (s *Server) IterationDetails(w http.ResponseWriter, r *http.Request) {
	var body IterationRequest
	if !s.decode(w, r, &body) {
		return
	}
	details, err := s.Sessions.IterationDetails(r.Context(), body.SessionID, *body.TurnNumber, *body.IterationNumber)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, details)
}

// ProcessTree handles POST /gametree/process.
func (s *Server) ProcessTree(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tree, err := s.Trees.ProcessTreeData(r.Context(), data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, tree)
}

// CurrentTree handles GET /gametree/current.
func (s *Server) CurrentTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Trees.CurrentTree(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, tree)
}

// StreamReplay handles GET /gamesession/turn/replay/stream (SSE).
// Each replayed snapshot is sent as a "step" event, followed by "done".
func (s *Server) StreamReplay(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("StreamReplay: Streaming not supported")
		return
	}

	query := r.URL.Query()
	turn, err := strconv.Atoi(query.Get("turnNumber"))
	body := TurnRequest{SessionID: query.Get("sessionId"), TurnNumber: &turn}
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid field TurnNumber: not a number")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	steps, err := s.Sessions.ReplayGrowth(r.Context(), body.SessionID, turn)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for _, step := range steps {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "session", body.SessionID, "turn", turn)
			return
		default:
		}
		payload, err := json.Marshal(step)
		if err != nil {
			s.logger.Error("StreamReplay: step encode failed", "step", step.StepNumber, "error", err)
			continue
		}
		fmt.Fprintf(w, "event: step\ndata: %s\n\n", payload)
		flusher.Flush()
	}

	fmt.Fprintf(w, "event: done\ndata: %d\n\n", len(steps))
	flusher.Flush()
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := LoadSpec(r.Context()); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}

	s.respond(w, http.StatusOK, map[string]string{
		"app":         "arbor-http",
		"version":     strings.TrimSpace(arbor.Version),
		"api_version": apiVersion,
	})
}

// GetSpec handles GET /openapi.yaml.
func (s *Server) GetSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	w.Write(rawSpec)
}
