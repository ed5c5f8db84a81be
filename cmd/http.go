package cmd

import (
	"errors"
	"net/http"
	"time"

	"github.com/dyng/subfeed/service"
	"github.com/dyng/subfeed/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"
)

var httplog = log.New("module", "http")

type healthReporter interface {
	Status() service.HealthStatus
}

type subscriptionsRequest struct {
	WeeksAgo      *int                 `json:"weeksAgo"`
	Subscriptions []types.Subscription `json:"subscriptions"`
}

type subscriptionsResponse struct {
	Items         []string             `json:"items"`
	Subscriptions []types.Subscription `json:"subscriptions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	CheckedAt time.Time `json:"checked_at"`
}

// NewRouter serves the feed API. health may be nil, in which case /healthz
// always reports ok.
func NewRouter(svc service.IService, health healthReporter) http.Handler {
	engine := gin.New()
	engine.Use(requestLogger(), gin.Recovery())

	h := &handlers{service: svc, health: health}
	engine.POST("/subscriptions", h.handleSubscriptions)
	engine.GET("/healthz", h.handleHealthz)
	return engine
}

type handlers struct {
	service service.IService
	health  healthReporter
}

func (h *handlers) handleSubscriptions(c *gin.Context) {
	var req subscriptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return
	}
	if req.WeeksAgo == nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "weeksAgo required"})
		return
	}
	if req.Subscriptions == nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "subscriptions required"})
		return
	}

	feed, err := h.service.GetFeed(c.Request.Context(), *req.WeeksAgo, req.Subscriptions)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, types.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "content store unavailable"})
		return
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, subscriptionsResponse{
		Items:         feed.ItemIDs(),
		Subscriptions: feed.Subscriptions,
	})
}

func (h *handlers) handleHealthz(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	status := h.health.Status()
	if !status.Healthy {
		c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "degraded", Store: status.Error, CheckedAt: status.CheckedAt})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ok", CheckedAt: status.CheckedAt})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		httplog.Debug("Handled request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "elapsed", time.Since(start))
	}
}
