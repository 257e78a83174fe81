// Package bluequbit provides the client for the remote quantum execution
// service. It submits circuit descriptions, polls job status, and returns
// measurement histograms. Retry policy is deliberately absent here; the
// sweep orchestrator owns retries.
package bluequbit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qvalidate/internal/circuit"
	"github.com/aristath/qvalidate/internal/domain"
)

// DefaultBaseURL is the production endpoint of the execution service.
const DefaultBaseURL = "https://app.bluequbit.io/api/v1"

// Client for the BlueQubit execution service.
type Client struct {
	baseURL      string
	token        string
	device       string
	client       *http.Client
	pollInterval time.Duration
	log          zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the service endpoint (used in tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithDevice selects the execution device (e.g. "quantum", "cpu").
func WithDevice(device string) Option {
	return func(c *Client) { c.device = device }
}

// WithPollInterval overrides the job status polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates a new execution service client.
func NewClient(token string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		token:        token,
		device:       "quantum",
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: 2 * time.Second,
		log:          log.With().Str("client", "bluequbit").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// submitRequest is the job submission payload.
type submitRequest struct {
	Circuit circuit.Circuit `json:"circuit"`
	Shots   int             `json:"shots"`
	Device  string          `json:"device"`
}

// jobResponse is the service's job representation.
type jobResponse struct {
	JobID  string         `json:"job_id"`
	Status string         `json:"status"`
	Counts map[string]int `json:"counts,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Execute submits the circuit and blocks until the job finishes, the context
// is cancelled, or the service reports a failure. Failures are returned as
// *domain.ExecutionError with the transient flag set for retryable causes.
func (c *Client) Execute(ctx context.Context, qc circuit.Circuit, shots int) (domain.Histogram, error) {
	job, err := c.submit(ctx, qc, shots)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("job_id", job.JobID).
		Int("shots", shots).
		Int("gates", len(qc.Gates)).
		Msg("Job submitted")

	return c.await(ctx, job.JobID)
}

// submit posts the circuit to the jobs endpoint.
func (c *Client) submit(ctx context.Context, qc circuit.Circuit, shots int) (*jobResponse, error) {
	body, err := json.Marshal(submitRequest{Circuit: qc, Shots: shots, Device: c.device})
	if err != nil {
		return nil, &domain.ExecutionError{Reason: "failed to encode circuit", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ExecutionError{Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ExecutionError{Reason: "submit request failed", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.statusError("submit", resp.StatusCode)
	}

	var job jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, &domain.ExecutionError{Reason: "failed to parse submit response", Transient: true, Err: err}
	}
	if job.JobID == "" {
		return nil, &domain.ExecutionError{Reason: "service returned no job id", Transient: true}
	}
	return &job, nil
}

// await polls the job until it completes or fails.
func (c *Client) await(ctx context.Context, jobID string) (domain.Histogram, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.fetch(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch job.Status {
		case "completed":
			if len(job.Counts) == 0 {
				return nil, &domain.ExecutionError{Reason: "completed job returned no counts", Transient: true}
			}
			return domain.Histogram(job.Counts), nil
		case "failed":
			return nil, &domain.ExecutionError{
				Reason:    fmt.Sprintf("job failed: %s", job.Error),
				Transient: true,
			}
		case "cancelled":
			return nil, &domain.ExecutionError{Reason: "job cancelled by service"}
		}

		select {
		case <-ctx.Done():
			return nil, &domain.ExecutionError{Reason: "execution cancelled", Transient: true, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// fetch retrieves the current job state.
func (c *Client) fetch(ctx context.Context, jobID string) (*jobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, &domain.ExecutionError{Reason: "failed to build status request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ExecutionError{Reason: "status request failed", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("status", resp.StatusCode)
	}

	var job jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, &domain.ExecutionError{Reason: "failed to parse status response", Transient: true, Err: err}
	}
	return &job, nil
}

// statusError maps an HTTP status to an execution error. Client-side
// configuration problems are terminal; service-side pressure is transient.
func (c *Client) statusError(op string, status int) *domain.ExecutionError {
	transient := true
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		transient = false
	}
	return &domain.ExecutionError{
		Reason:    fmt.Sprintf("%s returned status %d", op, status),
		Transient: transient,
	}
}
