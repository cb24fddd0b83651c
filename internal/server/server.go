// Package server exposes the HTTP trigger API: submitting a task records the
// user message and enqueues exactly one workflow run.
package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AAsriyan/vibe/internal/agent/app"
	"github.com/AAsriyan/vibe/internal/agent/ports"
	"github.com/AAsriyan/vibe/internal/shared/logging"
)

// TaskQueue accepts inbound task events for asynchronous processing.
type TaskQueue interface {
	Enqueue(event ports.TaskEvent) error
}

// Server is the gin HTTP surface of the worker.
type Server struct {
	store  ports.MessageStore
	queue  TaskQueue
	logger logging.Logger
	engine *gin.Engine
}

// New wires the routes. The gatherer backs /metrics; pass nil to disable it.
func New(store ports.MessageStore, queue TaskQueue, gatherer prometheus.Gatherer, logger logging.Logger) *Server {
	s := &Server{
		store:  store,
		queue:  queue,
		logger: logging.OrNop(logger),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", s.handleHealth)
	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	api := engine.Group("/api")
	api.POST("/tasks", s.handleCreateTask)
	api.GET("/conversations/:id/messages", s.handleListMessages)

	s.engine = engine
	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

type createTaskRequest struct {
	Value          string `json:"value"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.Value = strings.TrimSpace(req.Value)
	if req.Value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	if _, err := s.store.CreateMessage(c.Request.Context(), ports.CreateMessageParams{
		ConversationID: req.ConversationID,
		Content:        req.Value,
		Role:           ports.RoleUser,
	}); err != nil {
		s.logger.Error("Failed to record task message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record task"})
		return
	}

	err := s.queue.Enqueue(ports.TaskEvent{TaskValue: req.Value, ConversationID: req.ConversationID})
	if errors.Is(err, app.ErrQueueFull) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue is full, retry later"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"conversation_id": req.ConversationID})
}

func (s *Server) handleListMessages(c *gin.Context) {
	messages, err := s.store.ListRecentMessages(c.Request.Context(), c.Param("id"), 50)
	if err != nil {
		s.logger.Error("Failed to list messages: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
