package models

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// TaskStatus is the task-level outcome of the assignment round.
type TaskStatus string

const (
	TaskStatusWaiting  TaskStatus = "Waiting for approval"
	TaskStatusAccepted TaskStatus = "Accepted"
	TaskStatusRejected TaskStatus = "Rejected"
)

// AssignmentStatus is a single worker's answer to an assignment.
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentAccepted AssignmentStatus = "Accepted"
	AssignmentRejected AssignmentStatus = "Rejected"
)

// ResponseAction is what a worker sends back for an assignment.
type ResponseAction string

const (
	ActionAccept ResponseAction = "accept"
	ActionReject ResponseAction = "reject"
)

var (
	ErrWorkerNotAssigned = errors.New("worker not assigned")
	ErrTaskResolved      = errors.New("task already resolved")
	ErrInvalidAction     = errors.New("invalid action")
)

// Task is a customer order waiting for, or handled by, a field worker.
type Task struct {
	ID            uint       `json:"_id" gorm:"primaryKey"`
	OrderID       string     `json:"order_id" gorm:"size:16;uniqueIndex;not null"`
	CustomerName  string     `json:"customerName" gorm:"size:255;not null"`
	Email         string     `json:"email" gorm:"size:255;not null"`
	Phone         string     `json:"phone" gorm:"size:32;not null"`
	Address       string     `json:"address" gorm:"type:text;not null"`
	Pincode       string     `json:"pincode" gorm:"size:16;not null"`
	Cart          []CartItem `json:"cart" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Subtotal      float64    `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Discount      float64    `json:"discount" gorm:"type:decimal(12,2);not null"`
	Total         float64    `json:"total" gorm:"type:decimal(12,2);not null"`
	PaymentMethod string     `json:"paymentMethod" gorm:"size:64;default:'Pay After Service'"`
	Date          string     `json:"date" gorm:"size:32;not null"`
	TimeSlot      string     `json:"timeSlot" gorm:"size:64;not null"`

	IsApproved  bool       `json:"is_approved" gorm:"default:false"`
	IsCompleted bool       `json:"is_completed" gorm:"default:false"`
	IsCanceled  bool       `json:"is_canceled" gorm:"default:false"`
	IsRejected  bool       `json:"is_rejected" gorm:"default:false"`
	Status      TaskStatus `json:"status" gorm:"type:varchar(32);not null;default:'Waiting for approval';index"`

	AssignedWorkers []TaskAssignment `json:"assignedWorkers" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Proofs          []TaskProof      `json:"proofs,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime;<-:create"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// CartItem is one ordered service line of a task.
type CartItem struct {
	ID       uint    `json:"-" gorm:"primaryKey"`
	TaskID   uint    `json:"-" gorm:"not null;index"`
	Position int     `json:"-" gorm:"not null"`
	Name     string  `json:"name" gorm:"size:255;not null"`
	Price    float64 `json:"price" gorm:"type:decimal(12,2);not null;check:price >= 0"`
	Quantity int     `json:"quantity" gorm:"not null;default:1;check:quantity >= 1"`
	Category string  `json:"category" gorm:"size:64;not null"`
}

// TaskAssignment pairs a task with one candidate worker.
type TaskAssignment struct {
	ID        uint             `json:"_id" gorm:"primaryKey"`
	TaskID    uint             `json:"-" gorm:"not null;index;uniqueIndex:idx_assignment_task_worker"`
	Position  int              `json:"-" gorm:"not null"`
	WorkerID  string           `json:"workerId" gorm:"size:64;not null;index;uniqueIndex:idx_assignment_task_worker"`
	Status    AssignmentStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	CreatedAt time.Time        `json:"-"`
	UpdatedAt time.Time        `json:"-"`
}

// TaskProof is an uploaded proof-of-completion image.
type TaskProof struct {
	ID         uint      `json:"_id" gorm:"primaryKey"`
	TaskID     uint      `json:"-" gorm:"not null;index"`
	URL        string    `json:"url" gorm:"size:500;not null"`
	PublicID   string    `json:"publicId" gorm:"size:255"`
	UploadedBy string    `json:"uploadedBy" gorm:"size:64;not null"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (TaskAssignment) TableName() string {
	return "task_assignments"
}

func (TaskProof) TableName() string {
	return "task_proofs"
}

// BeforeCreate fills the order code once; an existing code is never replaced.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.OrderID == "" {
		t.OrderID = GenerateOrderID(t.Cart)
	}
	if t.Status == "" {
		t.Status = TaskStatusWaiting
	}
	if t.PaymentMethod == "" {
		t.PaymentMethod = "Pay After Service"
	}
	for i := range t.Cart {
		t.Cart[i].Position = i
		if t.Cart[i].Quantity == 0 {
			t.Cart[i].Quantity = 1
		}
	}
	for i := range t.AssignedWorkers {
		t.AssignedWorkers[i].Position = i
		if t.AssignedWorkers[i].Status == "" {
			t.AssignedWorkers[i].Status = AssignmentPending
		}
	}
	return nil
}

// OrderPrefix maps a cart category to its two-letter order code prefix.
func OrderPrefix(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "makeup":
		return "MU"
	case "decor":
		return "ED"
	case "cleaning":
		return "CL"
	default:
		return "OR"
	}
}

// GenerateOrderID derives a code from the first cart item: prefix plus a
// random number in [1000, 9999].
func GenerateOrderID(cart []CartItem) string {
	category := ""
	if len(cart) > 0 {
		category = cart[0].Category
	}
	return OrderPrefix(category) + strconv.Itoa(1000+rand.Intn(9000))
}

// IsOpen reports whether workers can still respond to the task.
func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusWaiting && !t.IsCanceled
}

// WorkerIDs lists the assigned worker ids in assignment order.
func (t *Task) WorkerIDs() []string {
	ids := make([]string, 0, len(t.AssignedWorkers))
	for _, a := range t.AssignedWorkers {
		ids = append(ids, a.WorkerID)
	}
	return ids
}

// FindAssignment resolves the caller's assignment entry. An exact id always
// wins. Unless strict is set, a stored id that is a prefix of the supplied
// one also matches, the longest such prefix taking precedence.
func (t *Task) FindAssignment(workerID string, strict bool) *TaskAssignment {
	var best *TaskAssignment
	for i := range t.AssignedWorkers {
		a := &t.AssignedWorkers[i]
		if a.WorkerID == "" {
			continue
		}
		if a.WorkerID == workerID {
			return a
		}
		if strict || !strings.HasPrefix(workerID, a.WorkerID) {
			continue
		}
		if best == nil || len(a.WorkerID) > len(best.WorkerID) {
			best = a
		}
	}
	return best
}

// AssignmentOf returns the entry stored under exactly workerID.
func (t *Task) AssignmentOf(workerID string) *TaskAssignment {
	if workerID == "" {
		return nil
	}
	for i := range t.AssignedWorkers {
		if t.AssignedWorkers[i].WorkerID == workerID {
			return &t.AssignedWorkers[i]
		}
	}
	return nil
}

// AssignmentFor resolves claimedID like FindAssignment but only returns the
// entry when it is stored under sessionID. An empty claimedID stands for the
// session worker.
func (t *Task) AssignmentFor(claimedID, sessionID string, strict bool) *TaskAssignment {
	if sessionID == "" {
		return nil
	}
	if claimedID == "" {
		claimedID = sessionID
	}
	entry := t.FindAssignment(claimedID, strict)
	if entry == nil || entry.WorkerID != sessionID {
		return nil
	}
	return entry
}

// ApplyResponse records a worker's decision. Accepting commits the task to
// that worker and rejects everybody else; the task becomes Rejected once
// every assignment is Rejected.
func (t *Task) ApplyResponse(workerID string, action ResponseAction, strict bool) (*TaskAssignment, error) {
	if action != ActionAccept && action != ActionReject {
		return nil, ErrInvalidAction
	}

	entry := t.FindAssignment(workerID, strict)
	if entry == nil {
		return nil, ErrWorkerNotAssigned
	}
	if !t.IsOpen() || entry.Status != AssignmentPending {
		return nil, ErrTaskResolved
	}

	switch action {
	case ActionAccept:
		entry.Status = AssignmentAccepted
		t.Status = TaskStatusAccepted
		t.IsApproved = true
		for i := range t.AssignedWorkers {
			if &t.AssignedWorkers[i] != entry {
				t.AssignedWorkers[i].Status = AssignmentRejected
			}
		}
	case ActionReject:
		entry.Status = AssignmentRejected
		if t.allRejected() {
			t.Status = TaskStatusRejected
			t.IsRejected = true
		}
	}
	return entry, nil
}

// AddAssignments appends pending entries for workers not yet on the task and
// returns the ids that were added.
func (t *Task) AddAssignments(workerIDs []string) []string {
	seen := make(map[string]bool, len(t.AssignedWorkers))
	for _, a := range t.AssignedWorkers {
		seen[a.WorkerID] = true
	}
	var added []string
	for _, id := range workerIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		t.AssignedWorkers = append(t.AssignedWorkers, TaskAssignment{
			TaskID:   t.ID,
			Position: len(t.AssignedWorkers),
			WorkerID: id,
			Status:   AssignmentPending,
		})
		added = append(added, id)
	}
	return added
}

// AcceptedWorker returns the worker id holding the task, or "".
func (t *Task) AcceptedWorker() string {
	for _, a := range t.AssignedWorkers {
		if a.Status == AssignmentAccepted {
			return a.WorkerID
		}
	}
	return ""
}

// Description summarises the cart for notifications and exports.
func (t *Task) Description() string {
	names := make([]string, 0, len(t.Cart))
	for _, item := range t.Cart {
		names = append(names, item.Name)
	}
	if len(names) == 0 {
		return "New service order"
	}
	return strings.Join(names, ", ")
}

func (t *Task) allRejected() bool {
	if len(t.AssignedWorkers) == 0 {
		return false
	}
	for _, a := range t.AssignedWorkers {
		if a.Status != AssignmentRejected {
			return false
		}
	}
	return true
}
