// Package telemetry records ingredient-list changes as a JSONL event stream.
// Allocations, exhausted levels, renumbering passes and imports each append
// one line, so the history of a recipe's positions can be replayed.
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindGroupAllocated      = "group_allocated"
	KindIngredientAllocated = "ingredient_allocated"
	KindLevelExhausted      = "level_exhausted"
	KindRenumbered          = "renumbered"
	KindEntriesRemoved      = "entries_removed"
	KindRecipeImported      = "recipe_imported"
)

// Event is a single telemetry record.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RecipeID  int64     `json:"recipe,omitempty"`
	EntryID   int64     `json:"entry,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
	now  func() time.Time
}

// NewEmitter creates an Emitter appending to the file at path.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

// Emit writes a single event. A zero Timestamp is set to the current time.
// Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying file. Calling Close on a nil Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

// ReadEvents decodes every event in r. Blank lines are skipped; a line that
// is not an event stops the read with an error naming the line.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(b, &evt); err != nil {
			return events, fmt.Errorf("telemetry: line %d: %w", line, err)
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("telemetry: read: %w", err)
	}
	return events, nil
}
