// Package http implements the REST API handlers.
package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conveyorci/conveyor/internal/coverage"
	"github.com/conveyorci/conveyor/internal/infrastructure/monitoring"
	"github.com/conveyorci/conveyor/internal/pipeline"
	"github.com/conveyorci/conveyor/internal/stages"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/types"
	"github.com/conveyorci/conveyor/internal/workflow"
)

// maxWorkflowSize bounds uploaded workflow definitions.
const maxWorkflowSize = 1 << 20

// Handlers holds the API dependencies.
type Handlers struct {
	workflows *store.Workflows
	runs      *store.Runs
	manager   *pipeline.Manager
	registry  *stages.Registry
	metrics   *monitoring.Metrics
}

// NewHandlers creates the API handlers.
func NewHandlers(workflows *store.Workflows, runs *store.Runs, manager *pipeline.Manager, registry *stages.Registry, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		workflows: workflows,
		runs:      runs,
		manager:   manager,
		registry:  registry,
		metrics:   metrics,
	}
}

// Root returns service info
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "conveyor",
		"status":  "running",
		"stages":  h.registry.List(),
	})
}

// Health returns service health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"workflows": len(h.workflows.List()),
	})
}

// Stats returns aggregate counters for dashboards
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.metrics.GetSnapshot(),
	})
}

// SaveWorkflow registers a workflow from its YAML definition
func (h *Handlers) SaveWorkflow(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWorkflowSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "failed to read request body",
		})
		return
	}

	wf, err := workflow.Parse(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if err := h.workflows.Put(wf); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"workflow": wf.Name,
		"jobs":     len(wf.Jobs),
	})
}

// ListWorkflows returns all registered workflows
func (h *Handlers) ListWorkflows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"workflows": h.workflows.List(),
	})
}

// GetWorkflow returns one workflow by name
func (h *Handlers) GetWorkflow(c *gin.Context) {
	wf, err := h.workflows.Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"workflow": wf,
	})
}

// Trigger starts runs for every workflow matching the event
func (h *Handlers) Trigger(c *gin.Context) {
	var req struct {
		Kind   string `json:"kind" binding:"required"`
		Branch string `json:"branch" binding:"required"`
		SHA    string `json:"sha"`
		Repo   string `json:"repo"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	runs, err := h.manager.Trigger(types.TriggerEvent{
		Kind:   types.EventKind(req.Kind),
		Branch: req.Branch,
		SHA:    req.SHA,
		Repo:   req.Repo,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	ids := make([]string, 0, len(runs))
	for _, run := range runs {
		ids = append(ids, run.ID)
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"runs":    ids,
	})
}

// StartRun starts one named workflow directly
func (h *Handlers) StartRun(c *gin.Context) {
	var req struct {
		Branch string `json:"branch" binding:"required"`
		SHA    string `json:"sha"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	run, err := h.manager.Start(c.Param("name"), types.TriggerEvent{
		Kind:   types.EventPush,
		Branch: req.Branch,
		SHA:    req.SHA,
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"run_id":  run.ID,
	})
}

// ListRuns returns all runs, newest first
func (h *Handlers) ListRuns(c *gin.Context) {
	runs := h.runs.List()
	out := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		snap := run.Snapshot()
		out = append(out, gin.H{
			"id":         snap.ID,
			"workflow":   snap.Workflow,
			"status":     snap.Status,
			"branch":     snap.Event.Branch,
			"created_at": snap.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"runs":    out,
	})
}

// GetRun returns one run with its job results
func (h *Handlers) GetRun(c *gin.Context) {
	run, err := h.runs.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"run":     run.Snapshot(),
	})
}

// GetRunCoverage returns the aggregated coverage picture per job
func (h *Handlers) GetRunCoverage(c *gin.Context) {
	run, err := h.runs.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	jobs := gin.H{}
	for name, jr := range run.Snapshot().Jobs {
		var percents []float64
		for _, cell := range jr.Cells {
			if cell.Coverage != nil {
				percents = append(percents, *cell.Coverage)
			}
		}
		if len(percents) > 0 {
			jobs[name] = coverage.Aggregate(percents)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"run_id":   run.ID,
		"coverage": jobs,
	})
}

// CancelRun cancels an in-flight run
func (h *Handlers) CancelRun(c *gin.Context) {
	if err := h.manager.Cancel(c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// ListStages returns the registered stage executors
func (h *Handlers) ListStages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stages":  h.registry.List(),
	})
}
