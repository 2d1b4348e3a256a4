// Package server exposes an Analyzer over HTTP with gin.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tsawler/sentiment"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Service is the inference surface the handlers depend on.
type Service interface {
	Analyze(text string) (sentiment.PredictionResult, error)
	AnalyzeBatch(texts []string) []sentiment.BatchResult
	AnalyzeSentences(text string) ([]sentiment.SentenceResult, error)
	Info() sentiment.ModelInfo
}

// StatsSource reports how many stored predictions carry each label.
type StatsSource interface {
	LabelCounts(ctx context.Context) (map[string]int64, error)
}

// Options configures a Handler.
type Options struct {
	RateLimit float64 // Requests per second across all clients; 0 disables.
	RateBurst int
	MaxBatch  int
	Version   string
	Stats     StatsSource // Optional; enables GET /v1/stats.
}

// Handler holds HTTP handlers for the sentiment API.
type Handler struct {
	svc     Service
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHandler creates a new Handler backed by svc.
func NewHandler(svc Service, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 100
	}
	h := &Handler{svc: svc, opts: opts, logger: logger}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return h
}

// Router builds the gin engine with all routes and middleware registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests())

	r.GET("/healthz", h.handleHealth)

	v1 := r.Group("/v1")
	v1.Use(h.rateLimit(), limitBody())
	v1.POST("/analyze", h.handleAnalyze)
	v1.POST("/analyze/batch", h.handleAnalyzeBatch)
	v1.POST("/analyze/sentences", h.handleAnalyzeSentences)
	v1.GET("/model", h.handleModel)
	if h.opts.Stats != nil {
		v1.GET("/stats", h.handleStats)
	}
	return r
}

// NewHTTPServer wraps the router with the given timeouts.
func (h *Handler) NewHTTPServer(addr string, read, write, idle time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h.Router(),
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type batchRequest struct {
	Texts []string `json:"texts"`
}

type analyzeResponse struct {
	sentiment.PredictionResult
	Message string `json:"message"`
}

type batchItem struct {
	Result *analyzeResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newAnalyzeResponse(res sentiment.PredictionResult) *analyzeResponse {
	return &analyzeResponse{PredictionResult: res, Message: sentiment.Describe(res)}
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"version":    h.opts.Version,
		"generation": h.svc.Info().Generation,
	})
}

func (h *Handler) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := h.svc.Analyze(req.Text)
	if err != nil {
		h.writeAnalyzeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAnalyzeResponse(res))
}

func (h *Handler) handleAnalyzeBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Texts) == 0 {
		writeError(c, http.StatusBadRequest, "texts must not be empty")
		return
	}
	if len(req.Texts) > h.opts.MaxBatch {
		writeError(c, http.StatusRequestEntityTooLarge, "too many texts in batch")
		return
	}

	results := h.svc.AnalyzeBatch(req.Texts)
	items := make([]batchItem, len(results))
	for i, r := range results {
		if r.Err != nil {
			if !errors.Is(r.Err, sentiment.ErrEmptyInput) {
				h.logger.Error("batch item failed", "index", i, "error", r.Err)
			}
			items[i].Error = userMessage(r.Err)
			continue
		}
		items[i].Result = newAnalyzeResponse(r.Result)
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

func (h *Handler) handleAnalyzeSentences(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sents, err := h.svc.AnalyzeSentences(req.Text)
	if err != nil {
		h.writeAnalyzeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sentences": sents})
}

func (h *Handler) handleModel(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Info())
}

func (h *Handler) handleStats(c *gin.Context) {
	counts, err := h.opts.Stats.LabelCounts(c.Request.Context())
	if err != nil {
		h.logger.Error("label counts", "error", err)
		writeError(c, http.StatusServiceUnavailable, "statistics unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": counts})
}

// writeAnalyzeError maps caller errors to 400 and everything else to 500.
// Internal details are logged, not returned.
func (h *Handler) writeAnalyzeError(c *gin.Context, err error) {
	if errors.Is(err, sentiment.ErrEmptyInput) {
		writeError(c, http.StatusBadRequest, userMessage(err))
		return
	}
	h.logger.Error("analyze failed", "error", err)
	writeError(c, http.StatusInternalServerError, userMessage(err))
}

func userMessage(err error) string {
	if errors.Is(err, sentiment.ErrEmptyInput) {
		return "Please enter some text"
	}
	return "internal error"
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
