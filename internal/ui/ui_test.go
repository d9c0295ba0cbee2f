package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/papapumpkin/larder/internal/position"
	"github.com/papapumpkin/larder/internal/store"
	"github.com/papapumpkin/larder/internal/tree"
)

func sauceTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr, err := tree.Build([]tree.Item{
		{ID: 1, Position: 0, Label: "Sauce"},
		{ID: 2, Position: 10_000, Label: "milk"},
		{ID: 3, Position: 10_100, Label: "water"},
		{ID: 4, Position: 10_101, Label: "milk powder"},
		{ID: 5, Position: 20_000, Label: "butter"},
		{ID: 6, Position: 99_010_000, Label: "salt"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tr
}

func TestTreeRenderer_Plain(t *testing.T) {
	t.Parallel()
	amount := 500.0
	entries := map[int64]store.Entry{
		2: {ID: 2, Amount: &amount, Unit: "volume-milliliter"},
		6: {ID: 6, Optional: true},
	}
	r := &TreeRenderer{Entry: func(id int64) (store.Entry, bool) {
		e, ok := entries[id]
		return e, ok
	}}

	got := r.Render(sauceTree(t))
	want := strings.Join([]string{
		"00.00.00.00  Sauce",
		"00.01.00.00  ├─ milk 500 volume-milliliter",
		"00.01.01.00  │  └─ or water",
		"00.01.01.01  │     └─ + milk powder",
		"00.02.00.00  └─ butter",
		"99.01.00.00  salt (optional)",
		"",
	}, "\n")
	if got != want {
		t.Errorf("Render mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestTreeRenderer_Empty(t *testing.T) {
	t.Parallel()
	r := &TreeRenderer{}
	if got := r.Render(tree.New()); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()
	one, two := 1.5, 2.0
	tests := []struct {
		name string
		e    store.Entry
		want string
	}{
		{"no amount", store.Entry{Unit: "mass-gram"}, ""},
		{"amount", store.Entry{Amount: &one}, "1.5"},
		{"range with unit", store.Entry{Amount: &one, RangeAmount: &two, Unit: "cup"}, "1.5–2 cup"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.e); got != tt.want {
			t.Errorf("%s: formatAmount = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPrinter_Decoded(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	NewTo(&buf).Decoded(position.Position(99_010_000))

	out := buf.String()
	for _, substr := range []string{"99.01.00.00", "level:        ingredient", "(global group)"} {
		if !strings.Contains(out, substr) {
			t.Errorf("expected output to contain %q, got:\n%s", substr, out)
		}
	}

	buf.Reset()
	NewTo(&buf).Decoded(0)
	if !strings.Contains(buf.String(), "parent:       (none)") {
		t.Errorf("group should have no parent, got:\n%s", buf.String())
	}
}

func TestPrinter_Imported(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := NewTo(&buf)
	p.Imported("soup.toml", store.Recipe{ID: 3, Title: "Soup"}, nil)
	p.Imported("stew.toml", store.Recipe{}, errors.New("maximum entries reached"))

	out := buf.String()
	if !strings.Contains(out, `recipe 3 "Soup"`) {
		t.Errorf("missing success line:\n%s", out)
	}
	if !strings.Contains(out, "stew.toml") || !strings.Contains(out, "maximum entries reached") {
		t.Errorf("missing failure line:\n%s", out)
	}
}

func TestPrinter_Removed(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	NewTo(&buf).Removed([]int64{1})
	NewTo(&buf).Removed([]int64{1, 2})
	out := buf.String()
	if !strings.Contains(out, "removed 1 entry") || !strings.Contains(out, "removed 2 entries") {
		t.Errorf("unexpected pluralization:\n%s", out)
	}
}
