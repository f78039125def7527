package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentflow/agentflow/internal/application/engine"
	"github.com/agentflow/agentflow/internal/application/planner"
	"github.com/agentflow/agentflow/internal/domain/agent"
	"github.com/agentflow/agentflow/internal/domain/decision"
	"github.com/agentflow/agentflow/internal/domain/event"
	"github.com/agentflow/agentflow/internal/domain/session"
	"github.com/agentflow/agentflow/internal/domain/task"
	"github.com/agentflow/agentflow/internal/infrastructure/tracer"
)

// Service coordinates agents: it routes single tasks through the decision
// engine, runs workflow plans and tracks sessions and request metrics.
type Service struct {
	registry  *agent.Registry
	engine    *engine.Service
	planner   *planner.Service
	sessions  session.Repository
	events    event.Publisher
	metrics   *metricsRecorder
	startedAt time.Time
	logger    zerolog.Logger
}

// NewService wires the orchestrator with its collaborators. A nil events
// publisher is replaced with a no-op one.
func NewService(
	registry *agent.Registry,
	eng *engine.Service,
	pln *planner.Service,
	sessions session.Repository,
	events event.Publisher,
	logger zerolog.Logger,
) *Service {
	if events == nil {
		events = event.Nop()
	}
	return &Service{
		registry:  registry,
		engine:    eng,
		planner:   pln,
		sessions:  sessions,
		events:    events,
		metrics:   &metricsRecorder{},
		startedAt: time.Now().UTC(),
		logger:    logger.With().Str("service", "orchestrator").Logger(),
	}
}

// RegisterAgent makes a named worker available for routing and workflows.
func (s *Service) RegisterAgent(name string, w agent.Worker, capabilities ...string) {
	s.registry.Register(name, w, capabilities...)
	s.logger.Info().
		Str("agent", name).
		Strs("capabilities", capabilities).
		Msg("agent registered")
}

// Agents lists every registered agent in registration order.
func (s *Service) Agents() []agent.Agent {
	return s.registry.Agents()
}

// Routing carries the annotations attached to a routed task.
type Routing struct {
	SelectedAgent    string  `json:"selectedAgent"`
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning"`
	RoutingLatencyMs float64 `json:"routingLatencyMs"`
	TotalLatencyMs   float64 `json:"totalLatencyMs"`
}

// RouteResult pairs agent output with how the task was routed.
type RouteResult struct {
	Task    task.Task   `json:"task"`
	Output  interface{} `json:"output"`
	Routing Routing     `json:"routing"`
}

// RouteTask normalizes the task, asks the engine for ranked candidates,
// executes the best one that is actually registered and returns its output.
// Every call lands in the metrics, failures included.
func (s *Service) RouteTask(ctx context.Context, t task.Task) (*RouteResult, error) {
	started := time.Now()
	normalized := t.Normalized()

	ctx, span := tracer.StartSpan(ctx, "orchestrator.route_task",
		trace.WithAttributes(tracer.StringAttr("task.id", normalized.ID)),
	)
	defer span.End()

	decisions, err := s.engine.DetermineAgents(ctx, normalized)
	if err != nil {
		s.metrics.record(time.Since(started), true)
		tracer.RecordError(span, err)
		return nil, err
	}

	chosen, worker, ok := s.selectWorker(decisions)
	if !ok {
		err := fmt.Errorf("%w: no registered agent for task %s", agent.ErrNotFound, normalized.ID)
		s.metrics.record(time.Since(started), true)
		tracer.RecordError(span, err)
		s.events.Publish(event.New(event.KindTaskFailed, map[string]interface{}{
			"taskId": normalized.ID,
			"error":  err.Error(),
		}))
		return nil, err
	}
	routingLatency := time.Since(started)

	output, err := worker.Execute(ctx, normalized)
	total := time.Since(started)
	if err != nil {
		execErr := &AgentExecutionError{Agent: chosen.AgentName, Err: err}
		s.metrics.record(total, true)
		tracer.RecordError(span, execErr)
		s.logger.Error().Err(err).
			Str("task_id", normalized.ID).
			Str("agent", chosen.AgentName).
			Msg("agent execution failed")
		s.events.Publish(event.New(event.KindTaskFailed, map[string]interface{}{
			"taskId": normalized.ID,
			"agent":  chosen.AgentName,
			"error":  err.Error(),
		}))
		return nil, execErr
	}

	s.metrics.record(total, false)
	span.SetAttributes(tracer.StringAttr("agent.name", chosen.AgentName))
	tracer.SetOK(span)
	s.logger.Info().
		Str("task_id", normalized.ID).
		Str("agent", chosen.AgentName).
		Float64("confidence", chosen.Confidence).
		Dur("total_latency", total).
		Msg("task routed")
	s.events.Publish(event.New(event.KindTaskRouted, map[string]interface{}{
		"taskId":     normalized.ID,
		"agent":      chosen.AgentName,
		"confidence": chosen.Confidence,
	}))

	return &RouteResult{
		Task:   normalized,
		Output: output,
		Routing: Routing{
			SelectedAgent:    chosen.AgentName,
			Confidence:       chosen.Confidence,
			Reasoning:        chosen.Reasoning,
			RoutingLatencyMs: durationMs(routingLatency),
			TotalLatencyMs:   durationMs(total),
		},
	}, nil
}

// selectWorker walks the ranked decisions and returns the first one whose
// agent is registered. Candidates without a worker are skipped, not errors.
func (s *Service) selectWorker(decisions []decision.Decision) (decision.Decision, agent.Worker, bool) {
	for _, d := range decisions {
		if w, ok := s.registry.Get(d.AgentName); ok {
			return d, w, true
		}
	}
	return decision.Decision{}, nil, false
}

// CreateSession opens a session; userID may be empty for anonymous callers.
func (s *Service) CreateSession(ctx context.Context, userID string) (*session.Session, error) {
	sess := session.New(userID)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info().Str("session_id", sess.ID).Str("user_id", userID).Msg("session created")
	s.events.Publish(event.New(event.KindSessionCreated, map[string]interface{}{
		"sessionId": sess.ID,
		"userId":    userID,
	}))
	return sess, nil
}

// GetSession returns a stored session or session.ErrNotFound.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, sessionID)
	}
	return sess, nil
}

// ExecuteWithSession records the task in the session history and routes it.
// The task enters the history whether or not routing succeeds afterwards.
func (s *Service) ExecuteWithSession(ctx context.Context, sessionID string, t task.Task) (*RouteResult, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	normalized := t.Normalized()
	if err := s.sessions.AppendTask(ctx, sess.ID, normalized); err != nil {
		return nil, fmt.Errorf("failed to record session task: %w", err)
	}
	return s.RouteTask(ctx, normalized)
}

// MetricsReport extends the raw counters with derived gauges.
type MetricsReport struct {
	Metrics
	SuccessRate      float64 `json:"successRate"`
	RegisteredAgents int     `json:"registeredAgents"`
	ActiveSessions   int     `json:"activeSessions"`
}

// GetMetrics assembles a point-in-time report.
func (s *Service) GetMetrics(ctx context.Context) (MetricsReport, error) {
	snap := s.metrics.snapshot()
	count, err := s.sessions.Count(ctx)
	if err != nil {
		return MetricsReport{}, fmt.Errorf("failed to count sessions: %w", err)
	}
	return MetricsReport{
		Metrics:          snap,
		SuccessRate:      snap.SuccessRate(),
		RegisteredAgents: s.registry.Count(),
		ActiveSessions:   count,
	}, nil
}

// Health reports component status for readiness probes.
type Health struct {
	Status           string  `json:"status"`
	RegisteredAgents int     `json:"registeredAgents"`
	ActiveSessions   int     `json:"activeSessions"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
}

// HealthCheck reports "ok" whenever the registry is wired, whether or not
// any agent is registered yet. The session count is best effort.
func (s *Service) HealthCheck(ctx context.Context) Health {
	h := Health{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
	if s.registry == nil {
		h.Status = "unhealthy"
		return h
	}
	h.RegisteredAgents = s.registry.Count()
	if count, err := s.sessions.Count(ctx); err == nil {
		h.ActiveSessions = count
	}
	return h
}
