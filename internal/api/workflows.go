package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convoflow/workflow-engine/internal/dispatch"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/telemetry"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// workflowHandler implements the control-plane operations spec §6
// describes: CreateWorkflow, ListWorkflows, DeleteWorkflow,
// TriggerWorkflow, ListExecutions. Every route is scoped under a tenant
// path segment; this repo has no separate auth layer (spec Non-goals),
// so the tenant ID in the URL is trusted as-is.
type workflowHandler struct {
	workflows  store.Workflows
	executions store.Executions
	dispatcher *dispatch.Dispatcher
	log        telemetry.Logger
}

func (h *workflowHandler) register(g *gin.RouterGroup) {
	tenants := g.Group("/tenants/:tenant_id")
	tenants.POST("/workflows", h.createWorkflow)
	tenants.GET("/workflows", h.listWorkflows)
	tenants.DELETE("/workflows/:workflow_id", h.deleteWorkflow)
	tenants.POST("/workflows/:workflow_id/trigger", h.triggerWorkflow)
	tenants.GET("/workflows/:workflow_id/executions", h.listExecutions)
}

// createWorkflowRequest mirrors workflow.Workflow's authoring-time fields;
// ID/TenantID/timestamps are server-assigned.
type createWorkflowRequest struct {
	Name          string               `json:"name" binding:"required"`
	TriggerKind   workflow.TriggerKind `json:"trigger_kind" binding:"required"`
	TriggerConfig map[string]any       `json:"trigger_config"`
	Active        *bool                `json:"active"`
	Nodes         []workflow.Node      `json:"nodes" binding:"required"`
	Edges         []workflow.Edge      `json:"edges" binding:"required"`
}

func (h *workflowHandler) createWorkflow(c *gin.Context) {
	var req createWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	wf := &workflow.Workflow{
		TenantID:      c.Param("tenant_id"),
		Name:          req.Name,
		Active:        active,
		TriggerKind:   req.TriggerKind,
		TriggerConfig: req.TriggerConfig,
		Nodes:         req.Nodes,
		Edges:         req.Edges,
	}
	if err := workflow.Validate(wf); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err := h.workflows.Create(c.Request.Context(), wf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, wf)
}

func (h *workflowHandler) listWorkflows(c *gin.Context) {
	wfs, err := h.workflows.List(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": wfs})
}

func (h *workflowHandler) deleteWorkflow(c *gin.Context) {
	err := h.workflows.Delete(c.Request.Context(), c.Param("tenant_id"), c.Param("workflow_id"))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type triggerWorkflowRequest struct {
	Payload map[string]any `json:"payload"`
}

func (h *workflowHandler) triggerWorkflow(c *gin.Context) {
	var req triggerWorkflowRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	executionID, err := h.dispatcher.TriggerWorkflow(c.Request.Context(), c.Param("tenant_id"), c.Param("workflow_id"), req.Payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"execution_id": executionID})
}

func (h *workflowHandler) listExecutions(c *gin.Context) {
	execs, err := h.executions.List(c.Request.Context(), c.Param("tenant_id"), c.Param("workflow_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": execs})
}
