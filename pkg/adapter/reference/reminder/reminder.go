// Package reminder is the reference adapter for the reminder.* action
// kinds. It has no external dependency: reminders live in process memory
// for the lifetime of the gateway, the way a local-only assistant feature
// would before a persistence layer is added.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quietcore/gateway/pkg/protocol"
)

// Reminder is one scheduled reminder.
type Reminder struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	DueAt     time.Time `json:"dueAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Adapter implements registry.Adapter for reminder.create/update/delete/list.
type Adapter struct {
	mu        sync.RWMutex
	reminders map[string]Reminder
}

// New builds an empty reminder Adapter.
func New() *Adapter {
	return &Adapter{reminders: make(map[string]Reminder)}
}

func (a *Adapter) Execute(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	switch req.Action {
	case "reminder.create":
		return a.create(req)
	case "reminder.update":
		return a.update(req)
	case "reminder.delete":
		return a.delete(req)
	case "reminder.list":
		return a.list()
	default:
		return nil, fmt.Errorf("reminder: %s is not implemented by the reference adapter", req.Action)
	}
}

func (a *Adapter) create(req protocol.ActionRequest) (interface{}, error) {
	title, _ := req.Payload["title"].(string)
	if title == "" {
		return nil, fmt.Errorf("reminder: payload.title is required")
	}
	dueAt, err := parseDueAt(req.Payload["dueAt"])
	if err != nil {
		return nil, err
	}

	r := Reminder{ID: uuid.NewString(), Title: title, DueAt: dueAt, CreatedAt: time.Now().UTC()}

	a.mu.Lock()
	a.reminders[r.ID] = r
	a.mu.Unlock()

	return r, nil
}

func (a *Adapter) update(req protocol.ActionRequest) (interface{}, error) {
	id, _ := req.Payload["id"].(string)
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder: unknown reminder %q", id)
	}
	if title, ok := req.Payload["title"].(string); ok && title != "" {
		r.Title = title
	}
	if raw, ok := req.Payload["dueAt"]; ok {
		dueAt, err := parseDueAt(raw)
		if err != nil {
			return nil, err
		}
		r.DueAt = dueAt
	}
	a.reminders[id] = r
	return r, nil
}

func (a *Adapter) delete(req protocol.ActionRequest) (interface{}, error) {
	id, _ := req.Payload["id"].(string)
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.reminders[id]; !ok {
		return nil, fmt.Errorf("reminder: unknown reminder %q", id)
	}
	delete(a.reminders, id)
	return map[string]interface{}{"id": id, "deleted": true}, nil
}

func (a *Adapter) list() (interface{}, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Reminder, 0, len(a.reminders))
	for _, r := range a.reminders {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func parseDueAt(raw interface{}) (time.Time, error) {
	s, ok := raw.(string)
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("reminder: payload.dueAt is required")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("reminder: payload.dueAt must be RFC3339: %w", err)
	}
	return t, nil
}
