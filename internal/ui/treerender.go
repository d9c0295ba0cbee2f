package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/larder/internal/position"
	"github.com/papapumpkin/larder/internal/store"
	"github.com/papapumpkin/larder/internal/tree"
)

// Semantic color palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF")
	colorAccent  = lipgloss.Color("#FFD700")
	colorMuted   = lipgloss.Color("#636363")
)

var (
	styleGroup    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	stylePosition = lipgloss.NewStyle().Foreground(colorMuted)
	styleOptional = lipgloss.NewStyle().Italic(true)
	styleMarker   = lipgloss.NewStyle().Foreground(colorAccent)
)

// TreeRenderer draws an ingredient tree, one entry per line, with the
// stored position in front of each line.
//
//	00.00.00.00  Sauce
//	00.01.00.00  ├─ milk 500 volume-milliliter
//	00.01.01.00  │  └─ or water
//	99.01.00.00  salt (optional)
type TreeRenderer struct {
	// UseColor controls whether lipgloss styles are applied.
	UseColor bool

	// Entry supplies amounts and units for a node. If nil, only labels
	// are shown.
	Entry func(id int64) (store.Entry, bool)
}

// Render returns the drawing of t, or an empty string for an empty tree.
func (r *TreeRenderer) Render(t *tree.Tree) string {
	var sb strings.Builder
	for _, g := range t.Groups {
		r.line(&sb, g, "")
		r.children(&sb, g.Children, "")
	}
	for _, n := range t.Items {
		r.line(&sb, n, "")
		r.children(&sb, n.Children, "")
	}
	return sb.String()
}

func (r *TreeRenderer) children(sb *strings.Builder, nodes []*tree.Node, indent string) {
	for i, n := range nodes {
		last := i == len(nodes)-1
		branch, next := "├─ ", "│  "
		if last {
			branch, next = "└─ ", "   "
		}
		r.line(sb, n, indent+branch)
		r.children(sb, n.Children, indent+next)
	}
}

func (r *TreeRenderer) line(sb *strings.Builder, n *tree.Node, prefix string) {
	sb.WriteString(r.style(stylePosition, n.Position.String()))
	sb.WriteString("  ")
	sb.WriteString(prefix)

	switch n.Level() {
	case position.LevelGroup:
		sb.WriteString(r.style(styleGroup, n.Label))
		sb.WriteByte('\n')
		return
	case position.LevelAlternative:
		sb.WriteString(r.style(styleMarker, "or "))
	case position.LevelAlternativeGroup:
		sb.WriteString(r.style(styleMarker, "+ "))
	}
	sb.WriteString(n.Label)

	if r.Entry != nil {
		if e, ok := r.Entry(n.ID); ok {
			if amount := formatAmount(e); amount != "" {
				sb.WriteByte(' ')
				sb.WriteString(amount)
			}
			if e.Optional {
				sb.WriteByte(' ')
				sb.WriteString(r.style(styleOptional, "(optional)"))
			}
		}
	}
	sb.WriteByte('\n')
}

func (r *TreeRenderer) style(s lipgloss.Style, text string) string {
	if !r.UseColor {
		return text
	}
	return s.Render(text)
}

func formatAmount(e store.Entry) string {
	if e.Amount == nil {
		return ""
	}
	s := strconv.FormatFloat(*e.Amount, 'f', -1, 64)
	if e.RangeAmount != nil {
		s += "–" + strconv.FormatFloat(*e.RangeAmount, 'f', -1, 64)
	}
	if e.Unit != "" {
		s += " " + e.Unit
	}
	return s
}
