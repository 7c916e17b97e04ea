package domain

// Status is the column a task lives in. The set is closed; anything else
// arriving from the wire coerces to TODO.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses returns the columns in board order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// ParseStatus coerces an untrusted value to a valid Status. Unknown or legacy
// values become TODO. Applied once at the system boundary (load/decode);
// internal code never re-validates.
func ParseStatus(v string) Status {
	switch Status(v) {
	case StatusTodo, StatusInProgress, StatusDone:
		return Status(v)
	default:
		return StatusTodo
	}
}

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// ParsePriority coerces an untrusted value to a valid Priority, defaulting
// unknown or missing input to MEDIUM.
func ParsePriority(v string) Priority {
	switch Priority(v) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(v)
	default:
		return PriorityMedium
	}
}

// Task is a work item. Subtasks are owned exclusively by their parent: they
// have no lifecycle outside the parent's update operation, and deleting the
// parent destroys the whole subtree. The nesting is unbounded in the model
// even though boards typically populate a single level.
type Task struct {
	ID           string   `json:"id"`
	BoardID      string   `json:"board_id"`
	ParentID     *string  `json:"parent_id,omitempty"`
	Key          string   `json:"key"`
	Summary      string   `json:"summary"`
	Description  string   `json:"description,omitempty"`
	Status       Status   `json:"status" enum:"TODO,IN_PROGRESS,DONE"`
	Priority     Priority `json:"priority" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Labels       []string `json:"labels,omitempty"`
	DueDate      *string  `json:"due_date,omitempty" format:"date"`
	ScheduleDate *string  `json:"schedule_date,omitempty" format:"date"`
	Estimation   *float64 `json:"estimation,omitempty" minimum:"0"`
	Subtasks     []Task   `json:"subtasks,omitempty"`
	CreatedAt    string   `json:"created_at" format:"date-time"`
	UpdatedAt    string   `json:"updated_at" format:"date-time"`
}

// TaskPatch is a shallow merge applied to one tree node. Nil fields are left
// untouched. A non-nil Subtasks replaces the entire subtask set. DueDate and
// ScheduleDate clear when set to the empty string.
type TaskPatch struct {
	Summary      *string   `json:"summary,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Status       *Status   `json:"status,omitempty" enum:"TODO,IN_PROGRESS,DONE"`
	Priority     *Priority `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Labels       []string  `json:"labels,omitempty"`
	DueDate      *string   `json:"due_date,omitempty" format:"date"`
	ScheduleDate *string   `json:"schedule_date,omitempty" format:"date"`
	Estimation   *float64  `json:"estimation,omitempty" minimum:"0"`
	Subtasks     []Task    `json:"subtasks,omitempty"`
}

// Apply returns a copy of t with the patch merged in. Subtasks are taken
// verbatim; key/id assignment for fresh subtasks is the tree package's job.
func (p TaskPatch) Apply(t Task) Task {
	if p.Summary != nil {
		t.Summary = *p.Summary
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Labels != nil {
		t.Labels = p.Labels
	}
	if p.DueDate != nil {
		if *p.DueDate == "" {
			t.DueDate = nil
		} else {
			t.DueDate = p.DueDate
		}
	}
	if p.ScheduleDate != nil {
		if *p.ScheduleDate == "" {
			t.ScheduleDate = nil
		} else {
			t.ScheduleDate = p.ScheduleDate
		}
	}
	if p.Estimation != nil {
		t.Estimation = p.Estimation
	}
	if p.Subtasks != nil {
		t.Subtasks = p.Subtasks
	}
	return t
}

type Board struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	FolderID  *string `json:"folder_id,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

// Folder groups boards. Folders do not nest.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Label is globally unique by name and created on first use.
type Label struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	BoardID    string `json:"board_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
