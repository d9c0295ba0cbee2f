package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/larder/internal/telemetry"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "View the JSONL change event log",
	Long: `Reads and formats the event log configured with --events or events_path.

--follow keeps the log open and prints changes as they are appended.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	eventsCmd.Flags().Int64("recipe", 0, "only show events for this recipe")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	follow, _ := cmd.Flags().GetBool("follow")
	recipe, _ := cmd.Flags().GetInt64("recipe")

	path := viper.GetString("events_path")
	if path == "" {
		return errors.New("events: no event log configured (set --events or events_path)")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("events: open %s: %w", path, err)
	}
	defer f.Close()

	t := &eventTail{r: bufio.NewReader(f), recipe: recipe}
	t.printLines(cmd.OutOrStdout())

	if !follow {
		return nil
	}
	return tailFollow(cmd, t, path)
}

// eventTail reads complete lines from the event log. A trailing line
// without its newline is held back until the writer finishes it.
type eventTail struct {
	r       *bufio.Reader
	partial string
	recipe  int64
}

// printLines prints every complete line buffered so far.
func (t *eventTail) printLines(w io.Writer) {
	for {
		chunk, err := t.r.ReadString('\n')
		if err != nil {
			t.partial += chunk
			return
		}
		line := strings.TrimSpace(t.partial + chunk)
		t.partial = ""
		if line != "" {
			printEvent(w, line, t.recipe)
		}
	}
}

// tailFollow prints events appended after the initial read until the
// command context is cancelled.
func tailFollow(cmd *cobra.Command, t *eventTail, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("events: create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		return fmt.Errorf("events: watch %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("events: watch %s: %w", path, err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) {
				t.printLines(out)
			}
		}
	}
}

// printEvent writes one log line as "[time] kind recipe=N entry=N data".
// Lines that do not decode are echoed behind a "???" marker.
func printEvent(w io.Writer, line string, recipe int64) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if recipe != 0 && evt.RecipeID != recipe {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", evt.Timestamp.Local().Format(time.DateTime), evt.Kind)
	if evt.RecipeID != 0 {
		fmt.Fprintf(&b, " recipe=%d", evt.RecipeID)
	}
	if evt.EntryID != 0 {
		fmt.Fprintf(&b, " entry=%d", evt.EntryID)
	}
	switch data := evt.Data.(type) {
	case nil:
	case map[string]any:
		b.WriteString(" " + formatDataMap(data))
	default:
		raw, _ := json.Marshal(data)
		b.WriteString(" " + string(raw))
	}
	fmt.Fprintln(w, b.String())
}

// formatDataMap renders m as space-separated key=value pairs in key order.
func formatDataMap(m map[string]any) string {
	pairs := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(pairs, " ")
}
