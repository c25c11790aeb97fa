package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"todo-api/internal/models"
	"todo-api/internal/query"
	"todo-api/internal/service"
	"todo-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Handler serves the todo HTTP API.
type Handler struct {
	svc     *service.Service
	version string
	checks  map[string]Check
	openapi []byte
}

// NewHandler builds the handler. checks are consulted by the readiness probe.
func NewHandler(svc *service.Service, version string, checks map[string]Check) *Handler {
	return &Handler{svc: svc, version: version, checks: checks, openapi: renderOpenAPI(version)}
}

// Root reports service status and version.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Todo API is running!", "version": h.version})
}

// Health returns 200 if the process is alive. Used by load balancers.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 if every configured dependency answers. Used by K8s readiness probes.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	deps := map[string]bool{}
	ready := true
	for name, check := range h.checks {
		err := check(ctx)
		deps[name] = err == nil
		if err != nil {
			ready = false
			logger.Warn(ctx, "Readiness check failed", "dependency", name, "error", err)
		}
	}
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps})
}

// ListTodos handles GET /todos?skip&limit&completed&search.
func (h *Handler) ListTodos(c *gin.Context) {
	p, err := parseParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	todos, err := h.svc.Query(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// GetTodo handles GET /todos/:id.
func (h *Handler) GetTodo(c *gin.Context) {
	todo, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// CreateTodo handles POST /todos and answers 201 with the stored todo.
func (h *Handler) CreateTodo(c *gin.Context) {
	var body models.TodoCreate
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, invalidBody(err))
		return
	}
	todo, err := h.svc.Create(c.Request.Context(), body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// UpdateTodo handles PUT /todos/:id; only fields present in the body change.
func (h *Handler) UpdateTodo(c *gin.Context) {
	var body models.TodoUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, invalidBody(err))
		return
	}
	todo, err := h.svc.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// ToggleTodo handles PATCH /todos/:id/toggle.
func (h *Handler) ToggleTodo(c *gin.Context) {
	todo, err := h.svc.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// DeleteTodo handles DELETE /todos/:id.
func (h *Handler) DeleteTodo(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /todos/stats/summary.
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func parseParams(c *gin.Context) (query.Params, error) {
	var p query.Params
	var err error
	if p.Skip, err = strconv.Atoi(c.DefaultQuery("skip", "0")); err != nil {
		return p, models.NewValidationError("skip", "int", "skip must be an integer")
	}
	if p.Limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(query.DefaultLimit))); err != nil {
		return p, models.NewValidationError("limit", "int", "limit must be an integer")
	}
	if raw, ok := c.GetQuery("completed"); ok {
		b, ok := parseBool(raw)
		if !ok {
			return p, models.NewValidationError("completed", "bool", "completed must be a boolean")
		}
		p.Completed = &b
	}
	p.Search = c.Query("search")
	return p.Normalize(), nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, true
	case "false", "0", "no", "off", "f", "n":
		return false, true
	}
	return false, false
}

func invalidBody(err error) error {
	return models.NewValidationError("body", "json", "invalid request body: "+err.Error())
}

func respondError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	var verr *models.ValidationError
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "details": verr.Violations})
	case isContextErr(err):
		logger.Debug(ctx, "Request canceled", "error", err)
		c.Status(http.StatusServiceUnavailable)
	default:
		logger.Error(ctx, "Request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
