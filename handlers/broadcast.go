package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kiprej-bot/utils"
)

// BroadcastRunner runs one broadcast and records it in a job.
type BroadcastRunner interface {
	RunJob(ctx context.Context, jobs *utils.JobStore, id uuid.UUID)
}

type BroadcastHandler struct {
	Runner BroadcastRunner
	Jobs   *utils.JobStore
}

// StartBroadcast starts a broadcast in the background and returns its job
// for polling.
func (h *BroadcastHandler) StartBroadcast(c *gin.Context) {
	job := h.Jobs.CreateJob()
	go h.Runner.RunJob(context.WithoutCancel(c.Request.Context()), h.Jobs, job.ID)
	c.JSON(http.StatusAccepted, job)
}

func (h *BroadcastHandler) GetBroadcast(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job id"})
		return
	}
	job, ok := h.Jobs.GetJob(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}
