package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papapumpkin/larder/internal/store"
)

// RecipeHeader returns the title of r followed by one "label: value" line
// per metadata field that is set.
func RecipeHeader(r store.Recipe) string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteByte('\n')

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %-10s %s\n", label+":", value)
		}
	}
	field("author", r.Author)
	field("cuisine", r.Cuisine)
	field("category", strings.Join(r.Categories, ", "))
	if r.Yields > 0 {
		field("yields", strings.TrimSpace(strconv.FormatFloat(r.Yields, 'f', -1, 64)+" "+r.YieldUnit))
	}
	if r.Rating != nil {
		field("rating", fmt.Sprintf("%d/10", *r.Rating))
	}
	field("prep", formatDuration(r.PreparationTime))
	field("cook", formatDuration(r.CookingTime))
	field("total", formatDuration(r.TotalTime))
	field("source", r.URL)
	if r.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Description)
	}
	return b.String()
}

// RecipeText returns the instructions and notes of r as titled sections,
// or an empty string when it has neither.
func RecipeText(r store.Recipe) string {
	var b strings.Builder
	for _, sec := range []struct{ title, text string }{
		{"Instructions", r.Instructions},
		{"Notes", r.Notes},
	} {
		if text := strings.TrimSpace(sec.text); text != "" {
			fmt.Fprintf(&b, "\n%s\n%s\n", sec.title, text)
		}
	}
	return b.String()
}

// formatDuration renders d in hours and minutes, e.g. "1h30m".
func formatDuration(d *time.Duration) string {
	if d == nil {
		return ""
	}
	m := int(d.Round(time.Minute) / time.Minute)
	switch h := m / 60; {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m%60 == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m%60)
	}
}
