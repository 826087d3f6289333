package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var failureCodes = []string{
	"MAILBOX_FULL",
	"MAILBOX_UNAVAILABLE",
	"SPAM_REJECTED",
	"SMTP_TIMEOUT",
	"DOMAIN_NOT_FOUND",
}

// Runner drains the campaign api's ready queue the way the real workflow
// engine does: poll pending-ready, then report each entry sent or failed.
type Runner struct {
	apiURL      string
	successRate float64
	limit       int
	client      *http.Client
	engineID    string

	mu  sync.Mutex
	rng *rand.Rand
}

type RunResult struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Errors    int    `json:"errors"`
}

type queueEntry struct {
	ID          int64  `json:"id"`
	ClientEmail string `json:"client_email"`
	Subject     string `json:"subject"`
}

type pendingResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Emails []queueEntry `json:"emails"`
		Count  int          `json:"count"`
	} `json:"data"`
}

func NewRunner(apiURL string, successRate float64, limit int, client *http.Client) *Runner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Runner{
		apiURL:      apiURL,
		successRate: successRate,
		limit:       limit,
		client:      client,
		engineID:    "WORKFLOW_STUB_" + uuid.New().String()[:8],
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Runner) SetSuccessRate(rate float64) {
	r.mu.Lock()
	r.successRate = rate
	r.mu.Unlock()
}

func (r *Runner) SuccessRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.successRate
}

func (r *Runner) succeed() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.Float64() < r.successRate {
		return true, ""
	}
	return false, failureCodes[r.rng.Intn(len(failureCodes))]
}

// Run performs one polling pass.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{RunID: uuid.NewString()}

	entries, err := r.pending(ctx)
	if err != nil {
		return res, err
	}

	for _, e := range entries {
		res.Processed++
		ok, code := r.succeed()
		if ok {
			err = r.patch(ctx, e.ID, "sent", map[string]any{"message_id": "<" + uuid.NewString() + "@workflow-stub>"})
		} else {
			err = r.patch(ctx, e.ID, "failed", map[string]any{
				"error_message": "simulated delivery failure",
				"error_code":    code,
			})
		}
		if err != nil {
			res.Errors++
			log.Warn().Err(err).Int64("queue_id", e.ID).Msg("report failed")
			continue
		}
		if ok {
			res.Sent++
			log.Info().Int64("queue_id", e.ID).Str("to", e.ClientEmail).Msg("email sent")
		} else {
			res.Failed++
			log.Warn().Int64("queue_id", e.ID).Str("to", e.ClientEmail).Str("error_code", code).Msg("email failed")
		}
	}
	return res, nil
}

func (r *Runner) pending(ctx context.Context) ([]queueEntry, error) {
	url := r.apiURL + "/api/pending-ready"
	if r.limit > 0 {
		url += "?limit=" + strconv.Itoa(r.limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll pending-ready: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll pending-ready: status %d", resp.StatusCode)
	}

	var body pendingResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode pending-ready: %w", err)
	}
	return body.Data.Emails, nil
}

func (r *Runner) patch(ctx context.Context, id int64, action string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/queue/%d/%s", r.apiURL, id, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mark %s: status %d", action, resp.StatusCode)
	}
	return nil
}

type Handler struct {
	runner *Runner
}

// Webhook receives the trigger and test calls from the campaign api.
func (h *Handler) Webhook(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if payload["action"] == "test" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "engine_id": h.runner.engineID})
		return
	}

	res, err := h.runner.Run(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("workflow run failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "run": res})
		return
	}
	log.Info().
		Str("run_id", res.RunID).
		Int("processed", res.Processed).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("workflow run finished")
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"engine_id":    h.runner.engineID,
		"timestamp":    time.Now(),
		"success_rate": h.runner.SuccessRate(),
	})
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var cfg struct {
		SuccessRate *float64 `json:"success_rate"`
	}
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if cfg.SuccessRate != nil && *cfg.SuccessRate >= 0 && *cfg.SuccessRate <= 1 {
		h.runner.SetSuccessRate(*cfg.SuccessRate)
		log.Info().Float64("rate", *cfg.SuccessRate).Msg("updated success rate")
	}
	c.JSON(http.StatusOK, gin.H{"success_rate": h.runner.SuccessRate()})
}

func SetupRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request processed")
	})

	router.POST("/webhook", h.Webhook)
	router.PUT("/config", h.UpdateConfig)
	router.GET("/health", h.Health)
	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "5678")
	apiURL := getEnv("CAMPAIGN_API_URL", "http://localhost:8080")
	successRate := getEnvFloat("SUCCESS_RATE", 0.95)
	limit := int(getEnvFloat("BATCH_LIMIT", 100))

	log.Info().
		Str("port", port).
		Str("api", apiURL).
		Float64("success_rate", successRate).
		Msg("starting workflow stub")

	h := &Handler{runner: NewRunner(apiURL, successRate, limit, nil)}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      SetupRouter(h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
