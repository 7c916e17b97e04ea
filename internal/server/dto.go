package server

import (
	"taskboard/internal/columns"
	"taskboard/internal/domain"
)

// Request payloads

type CreateBoardRequest struct {
	Name     string  `json:"name"`
	FolderID *string `json:"folder_id,omitempty"`
}

type UpdateBoardRequest struct {
	Name     *string `json:"name,omitempty"`
	FolderID *string `json:"folder_id,omitempty"`
}

type CreateFolderRequest struct {
	Name string `json:"name"`
}

// SubtaskRequest describes one entry of a task's subtask set. Entries
// without an id are fresh and get a generated id and key; entries carrying
// an id are kept as-is, so updates echo the survivors back.
type SubtaskRequest struct {
	ID           *string          `json:"id,omitempty"`
	Key          *string          `json:"key,omitempty"`
	Summary      string           `json:"summary"`
	Description  *string          `json:"description,omitempty"`
	Status       *string          `json:"status,omitempty" enum:"TODO,IN_PROGRESS,DONE"`
	Priority     *string          `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Labels       []string         `json:"labels,omitempty"`
	DueDate      *string          `json:"due_date,omitempty" format:"date"`
	ScheduleDate *string          `json:"schedule_date,omitempty" format:"date"`
	Estimation   *float64         `json:"estimation,omitempty" minimum:"0"`
	Subtasks     []SubtaskRequest `json:"subtasks,omitempty"`
}

type CreateTaskRequest struct {
	Key          *string          `json:"key,omitempty"`
	ParentID     *string          `json:"parent_id,omitempty"`
	Summary      string           `json:"summary"`
	Description  *string          `json:"description,omitempty"`
	Status       *string          `json:"status,omitempty" enum:"TODO,IN_PROGRESS,DONE"`
	Priority     *string          `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Labels       []string         `json:"labels,omitempty"`
	DueDate      *string          `json:"due_date,omitempty" format:"date"`
	ScheduleDate *string          `json:"schedule_date,omitempty" format:"date"`
	Estimation   *float64         `json:"estimation,omitempty" minimum:"0"`
	Subtasks     []SubtaskRequest `json:"subtasks,omitempty"`
}

type UpdateTaskRequest struct {
	Summary      *string          `json:"summary,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Status       *string          `json:"status,omitempty" enum:"TODO,IN_PROGRESS,DONE"`
	Priority     *string          `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Labels       []string         `json:"labels,omitempty"`
	DueDate      *string          `json:"due_date,omitempty"`
	ScheduleDate *string          `json:"schedule_date,omitempty"`
	Estimation   *float64         `json:"estimation,omitempty" minimum:"0"`
	Subtasks     []SubtaskRequest `json:"subtasks,omitempty"`
}

type MoveTaskRequest struct {
	Status string `json:"status" enum:"TODO,IN_PROGRESS,DONE"`
}

type ReorderTasksRequest struct {
	Status     string   `json:"status" enum:"TODO,IN_PROGRESS,DONE"`
	OrderedIDs []string `json:"ordered_ids"`
}

type CreateAPIKeyRequest struct {
	ActorID string `json:"actor_id,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Response payloads

type BoardResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	FolderID  *string `json:"folder_id,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type FolderResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type TaskResponse struct {
	ID           string         `json:"id"`
	BoardID      string         `json:"board_id"`
	ParentID     *string        `json:"parent_id,omitempty"`
	Key          string         `json:"key"`
	Summary      string         `json:"summary"`
	Description  string         `json:"description,omitempty"`
	Status       string         `json:"status" enum:"TODO,IN_PROGRESS,DONE"`
	Priority     string         `json:"priority" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Labels       []string       `json:"labels,omitempty"`
	DueDate      *string        `json:"due_date,omitempty" format:"date"`
	ScheduleDate *string        `json:"schedule_date,omitempty" format:"date"`
	Estimation   *float64       `json:"estimation,omitempty"`
	Subtasks     []TaskResponse `json:"subtasks,omitempty"`
	CreatedAt    string         `json:"created_at" format:"date-time"`
	UpdatedAt    string         `json:"updated_at" format:"date-time"`
}

type TaskByKeyResponse struct {
	Task      TaskResponse `json:"task"`
	ParentID  *string      `json:"parent_id,omitempty"`
	ParentKey *string      `json:"parent_key,omitempty"`
}

// ColumnsResponse maps each status column to its ordered tasks.
type ColumnsResponse map[string][]TaskResponse

type GroupResponse struct {
	BoardID string          `json:"board_id"`
	Label   string          `json:"label"`
	Columns ColumnsResponse `json:"columns"`
}

type LabelResponse struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	BoardID    string `json:"board_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json,omitempty"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Mapping helpers

func boardResponse(b domain.Board) BoardResponse {
	return BoardResponse{ID: b.ID, Name: b.Name, FolderID: b.FolderID, CreatedAt: b.CreatedAt}
}

func mapBoards(items []domain.Board) []BoardResponse {
	out := make([]BoardResponse, len(items))
	for i, b := range items {
		out[i] = boardResponse(b)
	}
	return out
}

func folderResponse(f domain.Folder) FolderResponse {
	return FolderResponse{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt}
}

func taskResponse(t domain.Task) TaskResponse {
	res := TaskResponse{
		ID:           t.ID,
		BoardID:      t.BoardID,
		ParentID:     t.ParentID,
		Key:          t.Key,
		Summary:      t.Summary,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		Labels:       t.Labels,
		DueDate:      t.DueDate,
		ScheduleDate: t.ScheduleDate,
		Estimation:   t.Estimation,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if len(t.Subtasks) > 0 {
		res.Subtasks = mapTasks(t.Subtasks)
	}
	return res
}

func mapTasks(items []domain.Task) []TaskResponse {
	out := make([]TaskResponse, len(items))
	for i, t := range items {
		out[i] = taskResponse(t)
	}
	return out
}

func columnsResponse(c columns.Columns) ColumnsResponse {
	out := make(ColumnsResponse, len(c))
	for _, status := range domain.Statuses() {
		out[string(status)] = mapTasks(c[status])
	}
	return out
}

func groupResponse(g columns.Group) GroupResponse {
	return GroupResponse{BoardID: g.BoardID, Label: g.Label, Columns: columnsResponse(g.Columns)}
}

func mapGroups(groups []columns.Group) []GroupResponse {
	out := make([]GroupResponse, len(groups))
	for i, g := range groups {
		out[i] = groupResponse(g)
	}
	return out
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		BoardID:    e.BoardID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    e.Payload,
	}
}

func mapEvents(items []domain.Event) []EventResponse {
	out := make([]EventResponse, len(items))
	for i, e := range items {
		out[i] = eventResponse(e)
	}
	return out
}

func subtaskDomain(in SubtaskRequest) domain.Task {
	t := domain.Task{
		Summary:      in.Summary,
		Labels:       in.Labels,
		DueDate:      in.DueDate,
		ScheduleDate: in.ScheduleDate,
		Estimation:   in.Estimation,
	}
	if in.ID != nil {
		t.ID = *in.ID
	}
	if in.Key != nil {
		t.Key = *in.Key
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = domain.ParseStatus(*in.Status)
	}
	if in.Priority != nil {
		t.Priority = domain.ParsePriority(*in.Priority)
	}
	if len(in.Subtasks) > 0 {
		t.Subtasks = subtasksDomain(in.Subtasks)
	}
	return t
}

func subtasksDomain(in []SubtaskRequest) []domain.Task {
	out := make([]domain.Task, len(in))
	for i, st := range in {
		out[i] = subtaskDomain(st)
	}
	return out
}

func taskPatch(in UpdateTaskRequest) domain.TaskPatch {
	p := domain.TaskPatch{
		Summary:      in.Summary,
		Description:  in.Description,
		Labels:       in.Labels,
		DueDate:      in.DueDate,
		ScheduleDate: in.ScheduleDate,
		Estimation:   in.Estimation,
	}
	if in.Status != nil {
		s := domain.ParseStatus(*in.Status)
		p.Status = &s
	}
	if in.Priority != nil {
		pr := domain.ParsePriority(*in.Priority)
		p.Priority = &pr
	}
	if in.Subtasks != nil {
		p.Subtasks = subtasksDomain(in.Subtasks)
	}
	return p
}
