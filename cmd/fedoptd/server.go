package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prompterlab/fedopt/pkg/fpo"
	"github.com/prompterlab/fedopt/pkg/queue"
)

// server is the HTTP surface over the optimization service and the job
// queue. All long-running work goes through the queue; handlers only
// enqueue and report.
type server struct {
	service        *fpo.Service
	queue          *queue.Queue
	defaultCadence int
}

func newRouter(s *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/run-fpo", s.handleRunFPO)
	r.GET("/fpo-status", s.handleFPOStatus)
	r.GET("/queue-status", s.handleQueueStatus)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

type runFPORequest struct {
	Iterations     int `json:"iterations" binding:"required,min=1"`
	EvolutionEvery int `json:"evolution_every" binding:"omitempty,min=0"`
}

func (s *server) handleRunFPO(c *gin.Context) {
	var req runFPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EvolutionEvery == 0 {
		req.EvolutionEvery = s.defaultCadence
	}

	payload, err := json.Marshal(fpo.RunRequest{
		Iterations:     req.Iterations,
		EvolutionEvery: req.EvolutionEvery,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The job id is derived from the payload, so resubmitting the same
	// run parameters lands on the already queued job.
	id := fmt.Sprintf("run-%x", sha256.Sum256(payload))[:20]
	position, err := s.queue.Enqueue(c.Request.Context(), fpo.QueueCategory, id, payload)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": true, "id": id, "position": position})
}

func (s *server) handleFPOStatus(c *gin.Context) {
	report, err := s.service.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *server) handleQueueStatus(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		c.JSON(http.StatusOK, s.queue.Status(category))
		return
	}
	c.JSON(http.StatusOK, s.queue.StatusAll())
}
