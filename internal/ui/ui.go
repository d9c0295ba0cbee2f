// Package ui formats larder's terminal output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/papapumpkin/larder/internal/position"
	"github.com/papapumpkin/larder/internal/store"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	yellow = "\033[33m"
	green  = "\033[32m"
	red    = "\033[31m"
	cyan   = "\033[36m"
)

// Printer writes status lines. The zero value is not usable; use New or
// NewTo.
type Printer struct {
	w io.Writer
}

// New returns a Printer writing to stderr.
func New() *Printer {
	return &Printer{w: os.Stderr}
}

// NewTo returns a Printer writing to w.
func NewTo(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Info prints a dimmed status line.
func (p *Printer) Info(msg string) {
	fmt.Fprintf(p.w, dim+"%s"+reset+"\n", msg)
}

// Error prints msg with an error prefix.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, red+bold+"error: "+reset+"%s\n", msg)
}

// RecipeCreated confirms a new recipe.
func (p *Printer) RecipeCreated(r store.Recipe) {
	fmt.Fprintf(p.w, green+"✓ recipe %d"+reset+" %s "+dim+"(%s)"+reset+"\n", r.ID, r.Title, r.UID)
}

// RecipeUpdated confirms a metadata change.
func (p *Printer) RecipeUpdated(r store.Recipe) {
	fmt.Fprintf(p.w, cyan+"✓ recipe %d"+reset+" %s "+dim+"updated"+reset+"\n", r.ID, r.Title)
}

// Recipes prints one line per recipe.
func (p *Printer) Recipes(recipes []store.Recipe) {
	if len(recipes) == 0 {
		fmt.Fprintln(p.w, dim+"(no recipes)"+reset)
		return
	}
	for _, r := range recipes {
		fmt.Fprintf(p.w, "%4d  %-32s "+dim+"%s"+reset, r.ID, r.Title, r.LastModified.Format("2006-01-02 15:04"))
		if len(r.Categories) > 0 {
			fmt.Fprintf(p.w, "  "+dim+"[%s]"+reset, strings.Join(r.Categories, ", "))
		}
		fmt.Fprintln(p.w)
	}
}

// EntryAdded reports the level and position of a new entry.
func (p *Printer) EntryAdded(e store.Entry) {
	kind := position.Classify(e.Position).String()
	fmt.Fprintf(p.w, green+"+ %s"+reset+" %s "+dim+"at %s (entry %d)"+reset+"\n", kind, e.Label(), e.Position, e.ID)
}

// Moved reports a move and the number of rewritten positions.
func (p *Printer) Moved(id int64, changed int) {
	fmt.Fprintf(p.w, cyan+"↻ moved entry %d"+reset+" "+dim+"(%d position(s) rewritten)"+reset+"\n", id, changed)
}

// Removed reports the number of deleted entries.
func (p *Printer) Removed(ids []int64) {
	fmt.Fprintf(p.w, yellow+"- removed %d entr%s"+reset+"\n", len(ids), plural(len(ids), "y", "ies"))
}

// Imported reports the outcome of one document import.
func (p *Printer) Imported(source string, r store.Recipe, err error) {
	if err != nil {
		fmt.Fprintf(p.w, "  "+red+"✗ %s"+reset+": %v\n", source, err)
		return
	}
	fmt.Fprintf(p.w, "  "+green+"✓ %s"+reset+" → recipe %d %q\n", source, r.ID, r.Title)
}

// Decoded prints the fields, level and parent of a position.
func (p *Printer) Decoded(pos position.Position) {
	d := position.Decode(pos)
	fmt.Fprintf(p.w, bold+"%s"+reset+" (%d)\n", pos, int(pos))
	fmt.Fprintf(p.w, "  level:        %s\n", position.Classify(pos))
	fmt.Fprintf(p.w, "  group:        %d\n", d.Group)
	fmt.Fprintf(p.w, "  ingredient:   %d\n", d.Ingredient)
	fmt.Fprintf(p.w, "  alternative:  %d\n", d.Alternative)
	fmt.Fprintf(p.w, "  and-member:   %d\n", d.And)
	parent, ok := position.ParentOf(pos)
	var b strings.Builder
	switch {
	case !ok:
		b.WriteString("(none)")
	case parent == position.GlobalGroupPosition():
		fmt.Fprintf(&b, "%s (global group)", parent)
	default:
		b.WriteString(parent.String())
	}
	fmt.Fprintf(p.w, "  parent:       %s\n", b.String())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
