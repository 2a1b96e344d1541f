package clients

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAndGet(t *testing.T) {
	svc := NewService(NewMemory())
	ctx := context.Background()

	c, err := svc.Create(ctx, "  Acme Media  ", "Press@Acme.KZ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Name != "Acme Media" {
		t.Fatalf("name not trimmed: %q", c.Name)
	}
	if c.ContactEmail != "press@acme.kz" {
		t.Fatalf("email not normalized: %q", c.ContactEmail)
	}
	if !c.Active {
		t.Fatal("new client should be active")
	}

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != c.ID || got.Name != c.Name {
		t.Fatalf("round-trip mismatch: %+v vs %+v", got, c)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(NewMemory())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "   ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty name, got %v", err)
	}
	if _, err := svc.Create(ctx, "Acme", "not-an-email"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad email, got %v", err)
	}
	// Contact email is optional.
	if _, err := svc.Create(ctx, "Acme", ""); err != nil {
		t.Fatalf("empty contact email rejected: %v", err)
	}
}

func TestUpdate(t *testing.T) {
	svc := NewService(NewMemory())
	ctx := context.Background()

	c, err := svc.Create(ctx, "Acme", "press@acme.kz")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "Acme Holdings"
	inactive := false
	updated, err := svc.Update(ctx, c.ID, Update{Name: &name, Active: &inactive})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Acme Holdings" || updated.Active {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.ContactEmail != "press@acme.kz" {
		t.Fatalf("untouched field changed: %q", updated.ContactEmail)
	}

	empty := "  "
	if _, err := svc.Update(ctx, c.ID, Update{Name: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
	if _, err := svc.Update(ctx, "missing", Update{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteBlockedWhileReferenced(t *testing.T) {
	store := NewMemory()
	svc := NewService(store)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Acme", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.AddReference(c.ID)

	if err := svc.Delete(ctx, c.ID); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}
	if _, err := svc.Get(ctx, c.ID); err != nil {
		t.Fatalf("blocked delete removed the row: %v", err)
	}
}

func TestListSortedByName(t *testing.T) {
	svc := NewService(NewMemory())
	ctx := context.Background()

	for _, name := range []string{"Zeta TV", "Alpha Press", "Mid Radio"} {
		if _, err := svc.Create(ctx, name, ""); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 clients, got %d", len(list))
	}
	if list[0].Name != "Alpha Press" || list[2].Name != "Zeta TV" {
		t.Fatalf("not sorted by name: %v", []string{list[0].Name, list[1].Name, list[2].Name})
	}
}
