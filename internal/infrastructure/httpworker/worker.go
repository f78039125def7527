package httpworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/internal/domain/task"
)

const maxResponseSize = 1 << 20 // 1MB

// Worker posts tasks to a remote agent endpoint and returns the decoded
// JSON response, adapting any HTTP agent to the agent.Worker contract.
type Worker struct {
	client   *http.Client
	name     string
	endpoint string
	logger   zerolog.Logger
}

// New creates an HTTP-backed worker for the agent at endpoint.
func New(name, endpoint string, logger zerolog.Logger) *Worker {
	return &Worker{
		client:   &http.Client{Timeout: 30 * time.Second},
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		logger:   logger.With().Str("service", "httpworker").Str("agent", name).Logger(),
	}
}

func (w *Worker) Execute(ctx context.Context, t task.Task) (interface{}, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read agent response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if len(body) == 0 {
		return nil, nil
	}
	var out interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode agent response: %w", err)
	}
	w.logger.Debug().Str("task_id", t.ID).Int("bytes", len(body)).Msg("agent responded")
	return out, nil
}
