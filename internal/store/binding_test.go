package store

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBindingRepository_CRUD(t *testing.T) {
	s := newTestStore(t)
	repo := s.Bindings()

	b := &Binding{
		ID:         "binding-1",
		Letter:     "V",
		PluginName: "system-control",
		ActionName: "volume_up",
		Enabled:    true,
	}
	if err := repo.Create(b); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	got, err := repo.GetByID("binding-1")
	if err != nil {
		t.Fatalf("failed to get binding: %v", err)
	}
	if got.Letter != "V" || got.PluginName != "system-control" || got.ActionName != "volume_up" {
		t.Errorf("binding mismatch: %+v", got)
	}
	if string(got.Config) != "{}" {
		t.Errorf("Config = %s, want {}", got.Config)
	}
	if !got.Enabled {
		t.Error("binding should be enabled")
	}

	got.Config = json.RawMessage(`{"step":5}`)
	got.Enabled = false
	if err := repo.Update(got); err != nil {
		t.Fatalf("failed to update binding: %v", err)
	}

	updated, err := repo.GetByID("binding-1")
	if err != nil {
		t.Fatalf("failed to get binding after update: %v", err)
	}
	if string(updated.Config) != `{"step":5}` {
		t.Errorf("Config not updated: %s", updated.Config)
	}
	if updated.Enabled {
		t.Error("binding should be disabled after update")
	}

	if err := repo.Delete("binding-1"); err != nil {
		t.Fatalf("failed to delete binding: %v", err)
	}
	if _, err := repo.GetByID("binding-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}
}

func TestBindingRepository_ListByLetter(t *testing.T) {
	s := newTestStore(t)
	repo := s.Bindings()

	bindings := []*Binding{
		{ID: "1", Letter: "A", PluginName: "keyboard", ActionName: "type", Enabled: true},
		{ID: "2", Letter: "A", PluginName: "system-control", ActionName: "mute", Enabled: false},
		{ID: "3", Letter: "B", PluginName: "keyboard", ActionName: "type", Enabled: true},
	}
	for _, b := range bindings {
		if err := repo.Create(b); err != nil {
			t.Fatalf("failed to create binding %q: %v", b.ID, err)
		}
	}

	list, err := repo.ListByLetter("A")
	if err != nil {
		t.Fatalf("failed to list bindings: %v", err)
	}
	if len(list) != 1 || list[0].ID != "1" {
		t.Errorf("ListByLetter(A) = %v, want only the enabled binding", list)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list bindings: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 bindings, got %d", len(all))
	}
}

func TestBindingRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := s.Bindings()

	if err := repo.Update(&Binding{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got: %v", err)
	}
	if err := repo.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got: %v", err)
	}
}
