package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemorySearchRanksByOverlapThenImportance(t *testing.T) {
	p := NewInMemoryProvider()
	ctx := context.Background()

	add := func(text string, importance float64) {
		t.Helper()
		if _, err := p.Add(ctx, Record{UserID: "u1", Text: text, Importance: importance}); err != nil {
			t.Fatalf("Add(%q) error = %v", text, err)
		}
	}
	add("likes green tea", 0.2)
	add("drinks tea every morning", 0.9)
	add("allergic to peanuts", 0.9)

	got, err := p.Search(ctx, "u1", "tea", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search() returned %d records, want 2", len(got))
	}
	if got[0].Text != "drinks tea every morning" {
		t.Fatalf("top record = %q, want importance to break the tie", got[0].Text)
	}
}

func TestInMemorySearchIsolatesUsers(t *testing.T) {
	p := NewInMemoryProvider()
	ctx := context.Background()
	if _, err := p.Add(ctx, Record{UserID: "u1", Text: "u1 fact about cats"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := p.Search(ctx, "u2", "cats", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Search() leaked records across users: %v", got)
	}
}

func TestInMemoryListNewestFirst(t *testing.T) {
	p := NewInMemoryProvider()
	ctx := context.Background()
	base := time.Now().UTC()
	for i, text := range []string{"oldest", "middle", "newest"} {
		if _, err := p.Add(ctx, Record{UserID: "u1", Text: text, CreatedAt: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	got, err := p.List(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].Text != "newest" || got[1].Text != "middle" {
		t.Fatalf("List() = %v, want newest first limited to 2", got)
	}
}

func TestInMemoryDeleteAndDeleteAll(t *testing.T) {
	p := NewInMemoryProvider()
	ctx := context.Background()
	rec, err := p.Add(ctx, Record{UserID: "u1", Text: "to delete"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := p.Delete(ctx, "u1", rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := p.Delete(ctx, "u1", rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}

	if _, err := p.Add(ctx, Record{UserID: "u1", Text: "another"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := p.DeleteAll(ctx, "u1"); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	got, err := p.List(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("List() after DeleteAll = %v, want empty", got)
	}
}
