package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/pkg/logger"
	"github.com/meridian-cg/coding-portal/pkg/prom"
	"github.com/valyala/fasthttp"
)

var (
	ErrNoAvailableEndpoints = errors.New("no available erp endpoints")
)

type BatchStatus string

const (
	StatusAccepted BatchStatus = "ACCEPTED"
	StatusRejected BatchStatus = "REJECTED"
	StatusPending  BatchStatus = "PENDING"
)

// ExportLine is one coded transaction flattened for the ERP import format.
type ExportLine struct {
	TransactionID   int64               `json:"transaction_id"`
	TransactionDate time.Time           `json:"transaction_date"`
	Description     string              `json:"description"`
	Amount          float64             `json:"amount"`
	Coding          model.CodingPayload `json:"coding"`
	Notes           string              `json:"notes,omitempty"`
}

// ExportBatch groups the reviewed transactions of one statement.
type ExportBatch struct {
	BatchID     string       `json:"batch_id"`
	StatementID int64        `json:"statement_id"`
	Lines       []ExportLine `json:"lines"`
}

type ExportResponse struct {
	BatchID       string      `json:"batch_id"`
	Status        BatchStatus `json:"status"`
	AcceptedCount int         `json:"accepted_count"`
	ErrorCode     string      `json:"error_code,omitempty"`
	ErrorMsg      string      `json:"error_message,omitempty"`
	ProcessedAt   time.Time   `json:"processed_at"`
}

type StatusResponse struct {
	BatchID   string      `json:"batch_id"`
	Status    BatchStatus `json:"status"`
	ErrorCode string      `json:"error_code,omitempty"`
	ErrorMsg  string      `json:"error_message,omitempty"`
}

// LineFromTransaction flattens a coded transaction into its export form.
func LineFromTransaction(tx *model.Transaction) ExportLine {
	line := ExportLine{
		TransactionID:   tx.ID,
		TransactionDate: tx.TransactionDate,
		Description:     tx.Description,
		Amount:          tx.Amount,
		Notes:           tx.Notes,
	}
	if tx.Coding != nil {
		line.Coding = tx.Coding.Payload()
	}
	return line
}

type EndpointMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64

	mu             sync.RWMutex
	latencyHistory []int64
	maxHistorySize int
}

func NewEndpointMetrics() *EndpointMetrics {
	return &EndpointMetrics{
		latencyHistory: make([]int64, 0, 100),
		maxHistorySize: 100,
	}
}

func (m *EndpointMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())

	m.mu.Lock()
	if len(m.latencyHistory) >= m.maxHistorySize {
		m.latencyHistory = m.latencyHistory[1:]
	}
	m.latencyHistory = append(m.latencyHistory, latencyMs)
	m.mu.Unlock()
}

func (m *EndpointMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *EndpointMetrics) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *EndpointMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

type EndpointState int

const (
	StateHealthy EndpointState = iota
	StateDegraded
	StateUnhealthy
	StateCircuitOpen
)

// Endpoint is one ERP ingestion target. The portal ships with a primary and
// a secondary; export fails over on circuit open.
type Endpoint struct {
	name             string
	url              string
	client           *fasthttp.Client
	metrics          *EndpointMetrics
	state            atomic.Int32
	weight           atomic.Int32
	circuitOpenUntil atomic.Int64
}

func NewEndpoint(name, url string, weight int, client *fasthttp.Client) *Endpoint {
	e := &Endpoint{
		name:    name,
		url:     url,
		client:  client,
		metrics: NewEndpointMetrics(),
	}
	e.state.Store(int32(StateHealthy))
	e.weight.Store(int32(weight))
	return e
}

func (e *Endpoint) GetState() EndpointState {
	return EndpointState(e.state.Load())
}

func (e *Endpoint) SetState(state EndpointState) {
	e.state.Store(int32(state))
}

func (e *Endpoint) IsAvailable() bool {
	state := e.GetState()
	if state == StateCircuitOpen {
		if time.Now().Unix() > e.circuitOpenUntil.Load() {
			e.SetState(StateDegraded)
			return true
		}
		return false
	}
	return state != StateUnhealthy
}

// Score ranks endpoints by success rate, latency, and base weight; zero means
// unavailable.
func (e *Endpoint) Score() float64 {
	if !e.IsAvailable() {
		return 0.0
	}

	successScore := e.metrics.SuccessRate() * 100

	latencyScore := 100.0
	if avg := e.metrics.AvgLatencyMs(); avg > 0 {
		latencyScore = 100.0 * (1.0 - (float64(avg) / 5000.0))
		if latencyScore < 0 {
			latencyScore = 0
		}
	}

	recentPenalty := 1.0 - (float64(e.metrics.ConsecutiveFails.Load()) * 0.1)
	if recentPenalty < 0.1 {
		recentPenalty = 0.1
	}

	statePenalty := 1.0
	switch e.GetState() {
	case StateDegraded:
		statePenalty = 0.5
	case StateUnhealthy, StateCircuitOpen:
		statePenalty = 0.0
	}

	baseWeight := float64(e.weight.Load())
	return (successScore*0.4 + latencyScore*0.4 + baseWeight*0.2) * recentPenalty * statePenalty
}

type Config struct {
	Endpoints               []EndpointConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	HealthCheckInterval     time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

type EndpointConfig struct {
	Name   string
	URL    string
	Weight int
}

type Client struct {
	config    *Config
	endpoints []*Endpoint
	mu        sync.RWMutex
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(config.Endpoints) == 0 {
		return nil, errors.New("at least one erp endpoint is required")
	}

	client := &Client{
		config:    config,
		endpoints: make([]*Endpoint, 0, len(config.Endpoints)),
		stopCh:    make(chan struct{}),
	}

	for _, ec := range config.Endpoints {
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		}

		client.endpoints = append(client.endpoints, NewEndpoint(ec.Name, ec.URL, ec.Weight, httpClient))
		logger.Info("ERP endpoint initialized", "name", ec.Name, "url", ec.URL, "weight", ec.Weight)
	}

	client.wg.Add(1)
	go client.healthChecker()

	return client, nil
}

// SelectBestEndpoint picks the highest scoring available endpoint.
func (c *Client) SelectBestEndpoint() (*Endpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *Endpoint
	var bestScore float64

	for _, endpoint := range c.endpoints {
		if !endpoint.IsAvailable() {
			continue
		}
		if score := endpoint.Score(); score > bestScore {
			bestScore = score
			best = endpoint
		}
	}

	if best == nil {
		return nil, ErrNoAvailableEndpoints
	}
	return best, nil
}

// Export ships a batch of coded transactions to the ERP, failing over to the
// next endpoint on error.
func (c *Client) Export(ctx context.Context, batch *ExportBatch) (*ExportResponse, error) {
	reqBody, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		endpoint, err := c.SelectBestEndpoint()
		if err != nil {
			lastErr = err
			continue
		}

		startTime := time.Now()
		response, err := c.doRequest(ctx, endpoint, "POST", "/api/v1/export/batches", reqBody)
		latency := time.Since(startTime).Milliseconds()

		if err != nil {
			endpoint.metrics.RecordFailure()
			c.checkCircuitBreaker(endpoint)
			prom.AddExportBatch("error")

			logger.Warn("Export request failed, retrying",
				"error", err, "endpoint", endpoint.name, "attempt", attempt+1)

			lastErr = err
			continue
		}

		endpoint.metrics.RecordSuccess(latency)

		var resp ExportResponse
		if err := json.Unmarshal(response, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		prom.AddExportBatch(string(resp.Status))
		logger.Info("Export batch shipped",
			"batch_id", batch.BatchID,
			"lines", len(batch.Lines),
			"status", string(resp.Status),
			"endpoint", endpoint.name,
			"latency_ms", latency)

		return &resp, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// GetBatchStatus queries the ingestion status of a previously shipped batch.
func (c *Client) GetBatchStatus(ctx context.Context, batchID string) (*StatusResponse, error) {
	endpoint, err := c.SelectBestEndpoint()
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/api/v1/export/batches/%s", batchID)
	response, err := c.doRequest(ctx, endpoint, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp StatusResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint *Endpoint, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint.url + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := endpoint.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}

func (c *Client) checkCircuitBreaker(endpoint *Endpoint) {
	consecutiveFails := endpoint.metrics.ConsecutiveFails.Load()
	if consecutiveFails >= int32(c.config.CircuitBreakerThreshold) {
		endpoint.SetState(StateCircuitOpen)
		endpoint.circuitOpenUntil.Store(time.Now().Add(c.config.CircuitBreakerTimeout).Unix())

		logger.Warn("Circuit breaker opened",
			"endpoint", endpoint.name,
			"consecutive_fails", consecutiveFails,
			"timeout", c.config.CircuitBreakerTimeout)
	}
}

func (c *Client) healthChecker() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.performHealthChecks()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) performHealthChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	c.mu.RLock()
	endpoints := make([]*Endpoint, len(c.endpoints))
	copy(endpoints, c.endpoints)
	c.mu.RUnlock()

	for _, endpoint := range endpoints {
		healthy := c.checkEndpointHealth(ctx, endpoint)

		oldState := endpoint.GetState()
		newState := oldState

		if healthy {
			if oldState == StateUnhealthy || oldState == StateDegraded {
				newState = StateHealthy
			}
		} else {
			newState = StateUnhealthy
		}

		if newState != oldState {
			endpoint.SetState(newState)
			logger.Info("ERP endpoint state changed",
				"endpoint", endpoint.name,
				"old_state", stateString(oldState),
				"new_state", stateString(newState))
		}
	}
}

func (c *Client) checkEndpointHealth(ctx context.Context, endpoint *Endpoint) bool {
	response, err := c.doRequest(ctx, endpoint, "GET", "/health", nil)
	if err != nil {
		return false
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(response, &health); err != nil {
		return false
	}
	return health.Status == "healthy"
}

// GetEndpointStats returns per-endpoint statistics sorted by score.
func (c *Client) GetEndpointStats() []EndpointStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(c.endpoints))
	for _, endpoint := range c.endpoints {
		stats = append(stats, EndpointStats{
			Name:             endpoint.name,
			URL:              endpoint.url,
			State:            stateString(endpoint.GetState()),
			Score:            endpoint.Score(),
			TotalRequests:    endpoint.metrics.TotalRequests.Load(),
			SuccessfulReqs:   endpoint.metrics.SuccessfulReqs.Load(),
			FailedReqs:       endpoint.metrics.FailedReqs.Load(),
			SuccessRate:      endpoint.metrics.SuccessRate(),
			AvgLatencyMs:     endpoint.metrics.AvgLatencyMs(),
			ConsecutiveFails: endpoint.metrics.ConsecutiveFails.Load(),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Score > stats[j].Score
	})

	return stats
}

func (c *Client) Close() error {
	close(c.stopCh)
	c.wg.Wait()
	return nil
}

type EndpointStats struct {
	Name             string
	URL              string
	State            string
	Score            float64
	TotalRequests    int64
	SuccessfulReqs   int64
	FailedReqs       int64
	SuccessRate      float64
	AvgLatencyMs     int64
	ConsecutiveFails int32
}

func stateString(state EndpointState) string {
	switch state {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateUnhealthy:
		return "UNHEALTHY"
	case StateCircuitOpen:
		return "CIRCUIT_OPEN"
	default:
		return "UNKNOWN"
	}
}
