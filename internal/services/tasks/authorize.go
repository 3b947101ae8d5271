package tasks

import (
	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

// Action is an operation an actor attempts on a task
type Action string

const (
	ActionComplete Action = "complete"
	ActionDelete   Action = "delete"
	ActionEdit     Action = "edit"
	ActionActivate Action = "activate"
	ActionSnooze   Action = "snooze"
	ActionTimer    Action = "timer"
)

// Authorize decides whether actor may perform action on task. teamOwnerID is the owner of
// the task's team and is ignored for personal tasks.
//
// Complete, delete and edit are allowed for the creator of a personal task, the assignee,
// and the owner of the task's team. Activation belongs to the creator of a personal task
// or the assignee of a team task. Snooze and timers are reserved for the creator.
func Authorize(actor uuid.UUID, task *models.Task, teamOwnerID uuid.UUID, action Action) error {
	if task == nil || actor == uuid.Nil {
		return models.ErrPermissionDenied
	}
	var allowed bool
	switch action {
	case ActionComplete, ActionDelete, ActionEdit:
		allowed = (task.IsPersonal() && task.OwnerID == actor) ||
			isAssignee(task, actor) ||
			(!task.IsPersonal() && teamOwnerID == actor)
	case ActionActivate:
		if task.IsPersonal() {
			allowed = task.OwnerID == actor
		} else {
			allowed = isAssignee(task, actor)
		}
	case ActionSnooze, ActionTimer:
		allowed = task.OwnerID == actor
	}
	if !allowed {
		return models.ErrPermissionDenied
	}
	return nil
}

func isAssignee(task *models.Task, actor uuid.UUID) bool {
	return task.AssigneeID != nil && *task.AssigneeID == actor
}
