package routes

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type assignRequest struct {
	WorkerIDs []string `json:"workerIds" binding:"required,min=1,dive,required"`
}

// ===== ADMIN HANDLERS =====

func (h *Handler) adminListTasks(c *gin.Context) {
	tasks, err := h.Tasks.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks, "count": len(tasks)})
}

func (h *Handler) adminCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid task: "+err.Error())
		return
	}

	task, err := h.Tasks.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.fail(c, err, "Failed to create task")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "task": task})
}

func (h *Handler) adminAssign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "workerIds is required")
		return
	}

	task, added, err := h.Tasks.Assign(c.Request.Context(), id, req.WorkerIDs)
	if err != nil {
		h.fail(c, err, "Failed to assign workers")
		return
	}
	if added == nil {
		added = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "task": task, "added": added})
}

func (h *Handler) adminCancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.Tasks.Cancel(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to cancel task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (h *Handler) adminExport(c *gin.Context) {
	var buf bytes.Buffer
	n, err := h.Exporter.ExportTasks(c.Request.Context(), &buf)
	if err != nil {
		h.fail(c, err, "Failed to export tasks")
		return
	}

	h.Log.Info("tasks exported", zap.Int("rows", n))
	filename := fmt.Sprintf("tasks-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
