package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentflow/agentflow/internal/application/orchestrator"
	"github.com/agentflow/agentflow/internal/application/planner"
	"github.com/agentflow/agentflow/internal/domain/agent"
	"github.com/agentflow/agentflow/internal/domain/session"
	"github.com/agentflow/agentflow/internal/domain/task"
	"github.com/agentflow/agentflow/internal/domain/workflow"
	"github.com/agentflow/agentflow/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	orch    *orchestrator.Service
	planner *planner.Service
	sseHub  *sse.Hub
}

func NewServer(orch *orchestrator.Service, pln *planner.Service, sseHub *sse.Hub) *Server {
	return &Server{
		orch:    orch,
		planner: pln,
		sseHub:  sseHub,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Post("/tasks/route", s.routeTask)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", s.createSession)
				r.Get("/{sessionId}", s.getSession)
			})

			r.Post("/workflows", s.createWorkflow)
			r.Get("/workflows/{planId}", s.getWorkflow)

			r.Get("/agents", s.listAgents)
			r.Get("/metrics", s.getMetrics)
			r.Get("/healthz", s.healthz)
		})

		// Workflow runs are bounded by their step timeouts and event streams
		// stay open until the client leaves, so neither sits behind the
		// request timeout.
		r.Post("/workflows/{planId}/execute", s.executeWorkflow)
		r.Get("/events", s.eventStream)
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// respondServiceError maps service errors onto HTTP statuses: unknown
// agents, sessions and plans are 404, rejected requests are 400, agent
// failures and step timeouts are 502, the rest is 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, workflow.ErrPlanNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, planner.ErrInvalidRequest),
		errors.Is(err, workflow.ErrCyclicDependency):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	case errors.Is(err, orchestrator.ErrAgentExecution),
		errors.Is(err, orchestrator.ErrStepTimeout):
		respondError(w, http.StatusBadGateway, "AGENT_ERROR", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// Data types for requests

type routeTaskRequest struct {
	Type        string                 `json:"type,omitempty"`
	Description string                 `json:"description"`
	Priority    int                    `json:"priority,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	SessionID   string                 `json:"session_id,omitempty"`
}

type workflowCreateRequest struct {
	Name     string   `json:"name,omitempty"`
	TaskType string   `json:"task_type,omitempty"`
	Agents   []string `json:"agents,omitempty"`
}

// Task handlers
func (s *Server) routeTask(w http.ResponseWriter, r *http.Request) {
	var req routeTaskRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "description is required")
		return
	}

	t := task.Task{
		Type:        req.Type,
		Description: req.Description,
		Priority:    req.Priority,
		Context:     req.Context,
	}
	var (
		res *orchestrator.RouteResult
		err error
	)
	if req.SessionID != "" {
		res, err = s.orch.ExecuteWithSession(r.Context(), req.SessionID, t)
	} else {
		res, err = s.orch.RouteTask(r.Context(), t)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Session handlers
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id,omitempty"`
	}
	_ = decodeBody(r, &req)
	sess, err := s.orch.CreateSession(r.Context(), req.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"session_id": sess.ID})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.GetSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// Workflow handlers
func (s *Server) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	plan, err := s.planner.CreatePlan(r.Context(), planner.Request{
		Name:     req.Name,
		TaskType: req.TaskType,
		Agents:   req.Agents,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planner.GetPlan(r.Context(), chi.URLParam(r, "planId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) executeWorkflow(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planId")
	var req struct {
		Context map[string]interface{} `json:"context,omitempty"`
	}
	_ = decodeBody(r, &req)

	res, err := s.orch.ExecuteWorkflow(r.Context(), planID, req.Context)
	if err != nil {
		if res != nil {
			// The run finished with failed steps; the per-step results say
			// which ones and why.
			respondJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":   "WORKFLOW_FAILED",
				"message": err.Error(),
				"result":  res,
			})
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Introspection handlers
func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"agents": s.orch.Agents()})
}

func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	report, err := s.orch.GetMetrics(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	h := s.orch.HealthCheck(r.Context())
	status := http.StatusOK
	if h.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, h)
}

func (s *Server) eventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}

	client := s.sseHub.Subscribe()
	defer s.sseHub.Unsubscribe(client.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Send an initial comment to flush headers and keep the connection alive.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case e, open := <-client.Events:
			if !open {
				return
			}
			payload, _ := json.Marshal(e)
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
