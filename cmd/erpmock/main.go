package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BatchStatus represents the import outcome of an export batch
type BatchStatus string

const (
	StatusAccepted BatchStatus = "ACCEPTED"
	StatusRejected BatchStatus = "REJECTED"
	StatusPending  BatchStatus = "PENDING"
)

// ExportLine represents one coded transaction in the import payload
type ExportLine struct {
	TransactionID   int64                  `json:"transaction_id" binding:"required"`
	TransactionDate time.Time              `json:"transaction_date"`
	Description     string                 `json:"description"`
	Amount          float64                `json:"amount"`
	Coding          map[string]interface{} `json:"coding" binding:"required"`
	Notes           string                 `json:"notes,omitempty"`
}

// ExportBatchRequest represents a batch import request
type ExportBatchRequest struct {
	BatchID     string       `json:"batch_id" binding:"required"`
	StatementID int64        `json:"statement_id" binding:"required"`
	Lines       []ExportLine `json:"lines" binding:"required"`
}

// ExportBatchResponse represents the response to a batch import
type ExportBatchResponse struct {
	BatchID       string      `json:"batch_id"`
	Status        BatchStatus `json:"status"`
	AcceptedCount int         `json:"accepted_count"`
	ErrorCode     string      `json:"error_code,omitempty"`
	ErrorMsg      string      `json:"error_message,omitempty"`
	ProcessedAt   time.Time   `json:"processed_at"`
}

// StatusCheckResponse represents a batch status lookup response
type StatusCheckResponse struct {
	BatchID   string      `json:"batch_id"`
	Status    BatchStatus `json:"status"`
	ErrorCode string      `json:"error_code,omitempty"`
	ErrorMsg  string      `json:"error_message,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status     string    `json:"status"`
	InstanceID string    `json:"instance_id"`
	Timestamp  time.Time `json:"timestamp"`
	AcceptRate float64   `json:"accept_rate"`
}

// MockErp simulates an ERP import endpoint
type MockErp struct {
	acceptRate float64
	minDelay   time.Duration
	maxDelay   time.Duration
	instanceID string
	rng        *rand.Rand

	mu      sync.RWMutex
	batches map[string]*ExportBatchResponse
}

// NewMockErp creates a new mock ERP instance
func NewMockErp(acceptRate float64, minDelay, maxDelay time.Duration) *MockErp {
	return &MockErp{
		acceptRate: acceptRate,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		instanceID: "MOCK_ERP_" + uuid.New().String()[:8],
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		batches:    make(map[string]*ExportBatchResponse),
	}
}

// simulateImport simulates the ERP import process for one batch
func (m *MockErp) simulateImport(req *ExportBatchRequest) *ExportBatchResponse {
	// Simulate processing delay; larger batches take longer
	delay := m.randomDelay() + time.Duration(len(req.Lines))*time.Millisecond
	time.Sleep(delay)

	response := &ExportBatchResponse{
		BatchID:     req.BatchID,
		ProcessedAt: time.Now(),
	}

	if m.shouldAccept() {
		response.Status = StatusAccepted
		response.AcceptedCount = len(req.Lines)

		log.Info().
			Str("batch_id", req.BatchID).
			Int64("statement_id", req.StatementID).
			Int("lines", len(req.Lines)).
			Dur("delay", delay).
			Msg("Batch imported successfully")
	} else {
		response.Status = StatusRejected
		response.ErrorCode = m.randomErrorCode()
		response.ErrorMsg = m.errorMessage(response.ErrorCode)

		log.Warn().
			Str("batch_id", req.BatchID).
			Int64("statement_id", req.StatementID).
			Str("error_code", response.ErrorCode).
			Msg("Batch import rejected")
	}

	m.mu.Lock()
	m.batches[req.BatchID] = response
	m.mu.Unlock()

	return response
}

func (m *MockErp) lookupBatch(batchID string) *ExportBatchResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batches[batchID]
}

func (m *MockErp) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	randomDelta := time.Duration(m.rng.Int63n(int64(delta)))
	return m.minDelay + randomDelta
}

func (m *MockErp) shouldAccept() bool {
	return m.rng.Float64() < m.acceptRate
}

func (m *MockErp) randomErrorCode() string {
	errorCodes := []string{
		"E-101",
		"E-102",
		"E-103",
		"E-104",
		"E-105",
		"E-106",
	}
	return errorCodes[m.rng.Intn(len(errorCodes))]
}

func (m *MockErp) errorMessage(code string) string {
	messages := map[string]string{
		"E-101": "Unknown company code",
		"E-102": "Unknown job number",
		"E-103": "Job phase is closed for posting",
		"E-104": "Unknown GL account",
		"E-105": "Posting period is closed",
		"E-106": "Duplicate batch id",
	}

	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Unknown error occurred"
}

// Handler struct holds the mock ERP and routes
type Handler struct {
	erp *MockErp
}

func NewHandler(erp *MockErp) *Handler {
	return &Handler{erp: erp}
}

// ImportBatch handles export batch import requests
func (h *Handler) ImportBatch(c *gin.Context) {
	var req ExportBatchRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if len(req.Lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "batch has no lines",
		})
		return
	}

	log.Info().
		Str("batch_id", req.BatchID).
		Int64("statement_id", req.StatementID).
		Int("lines", len(req.Lines)).
		Msg("Received export batch")

	response := h.erp.simulateImport(&req)

	statusCode := http.StatusOK
	if response.Status == StatusRejected {
		statusCode = http.StatusAccepted // 202: received but rejected by import validation
	}

	c.JSON(statusCode, response)
}

// GetBatchStatus handles batch status lookup requests
func (h *Handler) GetBatchStatus(c *gin.Context) {
	batchID := c.Param("batch_id")

	if batchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "batch_id is required",
		})
		return
	}

	// Simulate API delay
	time.Sleep(100 * time.Millisecond)

	if batch := h.erp.lookupBatch(batchID); batch != nil {
		c.JSON(http.StatusOK, StatusCheckResponse{
			BatchID:   batch.BatchID,
			Status:    batch.Status,
			ErrorCode: batch.ErrorCode,
			ErrorMsg:  batch.ErrorMsg,
		})
		return
	}

	c.JSON(http.StatusOK, StatusCheckResponse{
		BatchID: batchID,
		Status:  StatusPending,
	})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	// Simulate 5% downtime
	if h.erp.rng.Float64() < 0.05 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "ERP temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		InstanceID: h.erp.instanceID,
		Timestamp:  time.Now(),
		AcceptRate: h.erp.acceptRate,
	})
}

// UpdateConfig allows changing ERP behavior at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		AcceptRate *float64 `json:"accept_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.AcceptRate != nil {
		if *config.AcceptRate >= 0 && *config.AcceptRate <= 1.0 {
			h.erp.acceptRate = *config.AcceptRate
			log.Info().Float64("rate", *config.AcceptRate).Msg("Updated accept rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Configuration updated",
		"accept_rate": h.erp.acceptRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/export/batches", handler.ImportBatch)
		v1.GET("/export/batches/:batch_id", handler.GetBatchStatus)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8081")
	acceptRate := getEnvFloat("ACCEPT_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 200*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 2*time.Second)

	log.Info().
		Str("port", port).
		Float64("accept_rate", acceptRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock ERP")

	// Create mock ERP
	erp := NewMockErp(acceptRate, minDelay, maxDelay)
	handler := NewHandler(erp)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
