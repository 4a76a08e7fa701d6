package api

import (
	"context"
	"net/http"
	"time"

	"QuantCore/internal/usecase"
	xhttp "QuantCore/pkg/http"
	"QuantCore/pkg/logger"
	"QuantCore/pkg/queue"

	"github.com/labstack/echo/v4"
)

// HealthCheck probes one dependency; the health endpoint reports each by name.
type HealthCheck func(ctx context.Context) error

// Handler serves engine state over HTTP: weights, pairs, strategy metrics,
// risk snapshots, and strategy lifecycle controls.
type Handler struct {
	log     *logger.Logger
	snap    *usecase.SnapshotService
	manager *usecase.StrategyManager
	queue   queue.QueueService
	checks  map[string]HealthCheck
}

func NewHandler(
	log *logger.Logger,
	snap *usecase.SnapshotService,
	manager *usecase.StrategyManager,
	q queue.QueueService,
	checks map[string]HealthCheck,
) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{log: log, snap: snap, manager: manager, queue: q, checks: checks}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/weights", h.Weights)
	g.GET("/pairs", h.Pairs)
	g.GET("/strategies", h.Strategies)
	g.GET("/risk", h.Risk)
	g.GET("/frontier", h.Frontier)
	g.POST("/rebalance", h.Rebalance)
	g.POST("/strategies/:name/start", h.StartStrategy)
	g.POST("/strategies/:name/stop", h.StopStrategy)
}

func (h *Handler) Weights(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.snap.Weights(c.Request().Context()))
}

func (h *Handler) Pairs(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.snap.Pairs(c.Request().Context()))
}

func (h *Handler) Strategies(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.snap.Strategies(c.Request().Context()))
}

func (h *Handler) Risk(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.snap.Risk(c.Request().Context()))
}

func (h *Handler) Frontier(c echo.Context) error {
	points := h.snap.Frontier(c.Request().Context())
	if points == nil {
		return xhttp.NotFoundResponse(c, "insufficient history for frontier estimation")
	}
	return xhttp.SuccessResponse(c, points)
}

// Rebalance enqueues an on-demand portfolio rebalance.
func (h *Handler) Rebalance(c echo.Context) error {
	req := &usecase.RebalanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Reason == "" {
		req.Reason = "api"
	}
	if err := h.queue.PublishMessage(c.Request().Context(), usecase.RebalanceMessageType, req); err != nil {
		h.log.Error("enqueue rebalance", logger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("rebalance not accepted").WithError(err))
	}
	return xhttp.AcceptedResponse(c, map[string]string{"state": "queued"})
}

func (h *Handler) StartStrategy(c echo.Context) error {
	name := c.Param("name")
	if err := h.manager.Start(name); err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]string{"strategy": name, "state": "active"})
}

func (h *Handler) StopStrategy(c echo.Context) error {
	name := c.Param("name")
	if err := h.manager.Stop(name); err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]string{"strategy": name, "state": "stopped"})
}

// Health reports per-dependency status; 503 when any probe fails.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	return c.JSON(status, map[string]interface{}{
		"status": http.StatusText(status),
		"deps":   deps,
	})
}
