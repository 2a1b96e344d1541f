package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Khabar 24":            "khabar-24",
		"  Tengri   News!  ":   "tengri-news",
		"Радио NS":             "радио-ns",
		"---":                  "",
		"Caravan.kz (weekly)":  "caravan-kz-weekly",
		"UPPER":                "upper",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateGeneratesUniqueSlug(t *testing.T) {
	svc := NewService(NewMemory())
	ctx := context.Background()

	first, err := svc.Create(ctx, "tv", "Khabar 24", "https://khabar.kz")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Slug != "khabar-24" {
		t.Fatalf("unexpected slug: %q", first.Slug)
	}
	if !first.Active || first.Kind != KindTV {
		t.Fatalf("unexpected outlet: %+v", first)
	}

	second, err := svc.Create(ctx, "web", "Khabar 24", "")
	if err != nil {
		t.Fatalf("Create collision: %v", err)
	}
	if second.Slug != "khabar-24-2" {
		t.Fatalf("expected suffixed slug, got %q", second.Slug)
	}
	third, err := svc.Create(ctx, "radio", "Khabar 24", "")
	if err != nil {
		t.Fatalf("Create second collision: %v", err)
	}
	if third.Slug != "khabar-24-3" {
		t.Fatalf("expected suffixed slug, got %q", third.Slug)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(NewMemory())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "podcast", "X", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown kind, got %v", err)
	}
	if _, err := svc.Create(ctx, "tv", "  ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty name, got %v", err)
	}
	if _, err := svc.Create(ctx, "tv", "X", "nota url"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad website, got %v", err)
	}
	if _, err := svc.Create(ctx, "tv", "!!!", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unsluggable name, got %v", err)
	}
}

func TestUpdateRegeneratesSlugOnlyOnNameChange(t *testing.T) {
	svc := NewService(NewMemory())
	ctx := context.Background()

	o, err := svc.Create(ctx, "print", "Caravan", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	site := "https://caravan.kz"
	updated, err := svc.Update(ctx, o.ID, Update{Website: &site})
	if err != nil {
		t.Fatalf("Update website: %v", err)
	}
	if updated.Slug != "caravan" {
		t.Fatalf("slug changed without a name change: %q", updated.Slug)
	}

	same := "Caravan"
	updated, err = svc.Update(ctx, o.ID, Update{Name: &same})
	if err != nil {
		t.Fatalf("Update same name: %v", err)
	}
	if updated.Slug != "caravan" {
		t.Fatalf("slug regenerated for identical name: %q", updated.Slug)
	}

	renamed := "Caravan Weekly"
	updated, err = svc.Update(ctx, o.ID, Update{Name: &renamed})
	if err != nil {
		t.Fatalf("Update rename: %v", err)
	}
	if updated.Slug != "caravan-weekly" {
		t.Fatalf("slug not regenerated: %q", updated.Slug)
	}
}

func TestListByKindAndCounts(t *testing.T) {
	svc := NewService(NewMemory())
	ctx := context.Background()

	seeds := []struct{ kind, name string }{
		{"tv", "Khabar"},
		{"tv", "Qazaqstan TV"},
		{"web", "Tengri News"},
		{"radio", "Radio NS"},
	}
	for _, s := range seeds {
		if _, err := svc.Create(ctx, s.kind, s.name, ""); err != nil {
			t.Fatalf("Create %s: %v", s.name, err)
		}
	}

	tv, err := svc.List(ctx, "tv")
	if err != nil {
		t.Fatalf("List tv: %v", err)
	}
	if len(tv) != 2 {
		t.Fatalf("expected 2 tv outlets, got %d", len(tv))
	}
	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 outlets, got %d", len(all))
	}
	if _, err := svc.List(ctx, "satellite"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	counts, err := svc.CountByKind(ctx)
	if err != nil {
		t.Fatalf("CountByKind: %v", err)
	}
	if counts[KindTV] != 2 || counts[KindWeb] != 1 || counts[KindRadio] != 1 || counts[KindPrint] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
