package reminder

import (
	"context"
	"testing"

	"github.com/quietcore/gateway/pkg/protocol"
)

func TestCreateThenListReturnsReminder(t *testing.T) {
	a := New()
	ctx := context.Background()

	created, err := a.Execute(ctx, protocol.ActionRequest{
		Action:  "reminder.create",
		Payload: map[string]interface{}{"title": "water the plants", "dueAt": "2026-08-01T09:00:00Z"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r := created.(Reminder)
	if r.ID == "" {
		t.Fatal("expected a generated id")
	}

	listed, err := a.Execute(ctx, protocol.ActionRequest{Action: "reminder.list"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	reminders := listed.([]Reminder)
	if len(reminders) != 1 || reminders[0].ID != r.ID {
		t.Fatalf("expected the created reminder in the list, got %+v", reminders)
	}
}

func TestUpdateChangesTitle(t *testing.T) {
	a := New()
	ctx := context.Background()
	created, _ := a.Execute(ctx, protocol.ActionRequest{
		Action:  "reminder.create",
		Payload: map[string]interface{}{"title": "old", "dueAt": "2026-08-01T09:00:00Z"},
	})
	r := created.(Reminder)

	updated, err := a.Execute(ctx, protocol.ActionRequest{
		Action:  "reminder.update",
		Payload: map[string]interface{}{"id": r.ID, "title": "new"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.(Reminder).Title != "new" {
		t.Fatalf("expected title to update, got %q", updated.(Reminder).Title)
	}
}

func TestUpdateUnknownIDFails(t *testing.T) {
	a := New()
	_, err := a.Execute(context.Background(), protocol.ActionRequest{
		Action:  "reminder.update",
		Payload: map[string]interface{}{"id": "missing", "title": "x"},
	})
	if err == nil {
		t.Fatal("expected an error for an unknown reminder id")
	}
}

func TestDeleteRemovesReminder(t *testing.T) {
	a := New()
	ctx := context.Background()
	created, _ := a.Execute(ctx, protocol.ActionRequest{
		Action:  "reminder.create",
		Payload: map[string]interface{}{"title": "x", "dueAt": "2026-08-01T09:00:00Z"},
	})
	r := created.(Reminder)

	if _, err := a.Execute(ctx, protocol.ActionRequest{
		Action:  "reminder.delete",
		Payload: map[string]interface{}{"id": r.ID},
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	listed, _ := a.Execute(ctx, protocol.ActionRequest{Action: "reminder.list"})
	if len(listed.([]Reminder)) != 0 {
		t.Fatal("expected no reminders after delete")
	}
}

func TestCreateRequiresTitleAndDueAt(t *testing.T) {
	a := New()
	ctx := context.Background()

	if _, err := a.Execute(ctx, protocol.ActionRequest{Action: "reminder.create", Payload: map[string]interface{}{}}); err == nil {
		t.Fatal("expected an error for missing title")
	}
	if _, err := a.Execute(ctx, protocol.ActionRequest{
		Action: "reminder.create", Payload: map[string]interface{}{"title": "x", "dueAt": "not-a-date"},
	}); err == nil {
		t.Fatal("expected an error for malformed dueAt")
	}
}
