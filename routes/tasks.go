package routes

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"task-board-server/models"
	"task-board-server/services"
)

type respondRequest struct {
	TaskID   uint   `json:"taskId" binding:"required"`
	WorkerID string `json:"workerId"`
	Action   string `json:"action" binding:"required"`
}

type cartItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"gte=0"`
	Quantity int     `json:"quantity" binding:"gte=0"`
	Category string  `json:"category"`
}

type createTaskRequest struct {
	CustomerName  string            `json:"customerName" binding:"required"`
	Email         string            `json:"email" binding:"required,email"`
	Phone         string            `json:"phone" binding:"required"`
	Address       string            `json:"address" binding:"required"`
	Pincode       string            `json:"pincode" binding:"required"`
	Cart          []cartItemRequest `json:"cart" binding:"required,min=1,dive"`
	Subtotal      float64           `json:"subtotal" binding:"gte=0"`
	Discount      float64           `json:"discount" binding:"gte=0"`
	Total         float64           `json:"total" binding:"gte=0"`
	PaymentMethod string            `json:"paymentMethod"`
	Date          string            `json:"date" binding:"required"`
	TimeSlot      string            `json:"timeSlot" binding:"required"`
	WorkerIDs     []string          `json:"workerIds"`
}

func (r createTaskRequest) toInput() services.CreateTaskInput {
	in := services.CreateTaskInput{
		CustomerName:  r.CustomerName,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
		Pincode:       r.Pincode,
		Subtotal:      r.Subtotal,
		Discount:      r.Discount,
		Total:         r.Total,
		PaymentMethod: r.PaymentMethod,
		Date:          r.Date,
		TimeSlot:      r.TimeSlot,
		WorkerIDs:     r.WorkerIDs,
	}
	for _, item := range r.Cart {
		in.Cart = append(in.Cart, services.CartItemInput{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Category: item.Category,
		})
	}
	return in
}

// ===== WORKER TASK HANDLERS =====

func (h *Handler) respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "taskId and action are required")
		return
	}

	// The service resolves the body id and checks it lands on the session
	// worker's own assignment.
	task, err := h.Responder.Respond(c.Request.Context(), services.RespondInput{
		TaskID:          req.TaskID,
		WorkerID:        strings.TrimSpace(req.WorkerID),
		SessionWorkerID: sessionWorker(c),
		Action:          models.ResponseAction(req.Action),
	})
	if err != nil {
		h.fail(c, err, "Failed to update task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (h *Handler) listTasks(c *gin.Context) {
	session := sessionWorker(c)
	workerID := c.DefaultQuery("workerId", session)
	if workerID != session {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Cannot list another worker's tasks"})
		return
	}

	tasks, err := h.Tasks.ListForWorker(c.Request.Context(), workerID)
	if err != nil {
		h.fail(c, err, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks, "count": len(tasks)})
}

func (h *Handler) getTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.Tasks.GetForWorker(c.Request.Context(), id, sessionWorker(c))
	if err != nil {
		h.fail(c, err, "Failed to fetch task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (h *Handler) uploadProof(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "Invalid form data")
		return
	}
	headers := form.File["proof"]
	if len(headers) == 0 {
		badRequest(c, "No files provided")
		return
	}
	if len(headers) > services.MaxProofFiles {
		badRequest(c, fmt.Sprintf("At most %d files can be uploaded", services.MaxProofFiles))
		return
	}

	files := make([]services.ProofFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "Failed to read "+fh.Filename)
			return
		}
		opened = append(opened, f)
		files = append(files, services.ProofFile{Filename: fh.Filename, Size: fh.Size, Content: f})
	}

	task, err := h.Proofs.UploadProof(c.Request.Context(), id, sessionWorker(c), files)
	if err != nil {
		h.fail(c, err, "Failed to upload proof")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// createOrder is the public checkout endpoint. Workers are assigned later
// by an admin.
func (h *Handler) createOrder(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid order: "+err.Error())
		return
	}
	req.WorkerIDs = nil

	task, err := h.Tasks.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.fail(c, err, "Failed to create order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "task": task})
}
