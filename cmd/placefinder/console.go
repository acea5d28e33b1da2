package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

const consoleHelp = `Type to search. Commands:
  :select N   open result N
  :history    toggle the history list
  :show       show the history list
  :pick N     open history entry N
  :clear      clear the history
  :close      close the selected place
  :quit       exit`

// Console is a line-oriented presenter over the search session. Every line that
// is not a command is a text-input change.
type Console struct {
	session interfaces.SearchSession
	out     io.Writer
	logger  arbor.ILogger

	mu           sync.Mutex
	lastVersion  uint64
	lastRendered string
}

// NewConsole creates a presenter and subscribes it to session updates and alerts
func NewConsole(session interfaces.SearchSession, eventService interfaces.EventService, out io.Writer, logger arbor.ILogger) *Console {
	c := &Console{
		session: session,
		out:     out,
		logger:  logger,
	}

	if eventService != nil {
		eventService.Subscribe(interfaces.EventSessionUpdated, func(ctx context.Context, event interfaces.Event) error {
			if snapshot, ok := event.Payload.(models.SessionSnapshot); ok {
				c.render(snapshot)
			}
			return nil
		})
		eventService.Subscribe(interfaces.EventAlert, func(ctx context.Context, event interfaces.Event) error {
			if alert, ok := event.Payload.(interfaces.AlertPayload); ok {
				c.alert(alert)
			}
			return nil
		})
	}

	return c
}

// Run reads commands from in until :quit, EOF or ctx is done
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	c.println(consoleHelp)
	c.render(c.session.Snapshot())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if quit := c.Execute(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute handles one input line and reports whether the presenter should exit
func (c *Console) Execute(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ":") {
		c.session.HandleSearch(line)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help":
		c.println(consoleHelp)
	case ":history":
		c.session.ToggleHistory()
	case ":show":
		c.session.SetHistoryVisible(true)
	case ":close":
		c.session.ClearSelection()
	case ":clear":
		if err := c.session.ClearHistory(ctx); err != nil {
			c.println("Failed to clear history: " + err.Error())
		}
	case ":select":
		results := c.session.Snapshot().Results
		index, ok := c.index(fields, len(results))
		if !ok {
			return false
		}
		// a failed lookup is reported through the alert subscription
		c.session.SelectPrediction(ctx, results[index])
	case ":pick":
		entries := c.session.Snapshot().History
		index, ok := c.index(fields, len(entries))
		if !ok {
			return false
		}
		c.session.SelectHistoryEntry(entries[index])
	default:
		c.println("Unknown command " + fields[0] + " (:help lists commands)")
	}
	return false
}

// index parses the 1-based argument of :select and :pick
func (c *Console) index(fields []string, size int) (int, bool) {
	if len(fields) < 2 {
		c.println("Usage: " + fields[0] + " N")
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > size {
		c.println(fmt.Sprintf("No entry %s (have %d)", fields[1], size))
		return 0, false
	}
	return n - 1, true
}

func (c *Console) render(snapshot models.SessionSnapshot) {
	text := FormatSnapshot(snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()
	if snapshot.Version < c.lastVersion || text == c.lastRendered {
		return
	}
	c.lastVersion = snapshot.Version
	c.lastRendered = text
	fmt.Fprintln(c.out, text)
}

func (c *Console) alert(alert interfaces.AlertPayload) {
	c.println(fmt.Sprintf("! %s: %s", alert.Title, alert.Message))
}

func (c *Console) println(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

// FormatSnapshot renders the visible part of a session as plain text
func FormatSnapshot(snapshot models.SessionSnapshot) string {
	var b strings.Builder

	switch snapshot.State {
	case models.StateSearching:
		b.WriteString("Searching...")
	case models.StateHistory:
		if len(snapshot.History) == 0 {
			b.WriteString("No recent searches")
			break
		}
		b.WriteString("Recent searches:")
		for i, place := range snapshot.History {
			fmt.Fprintf(&b, "\n  %d. %s - %s", i+1, place.Name, place.FormattedAddress)
		}
	case models.StateResults:
		for i, prediction := range snapshot.Results {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "  %d. %s", i+1, highlight(prediction))
		}
	case models.StateDetail:
		writePlace(&b, snapshot)
	default:
		b.WriteString("Search for a place")
	}

	return b.String()
}

func highlight(prediction models.AutocompletePrediction) string {
	var b strings.Builder
	for _, segment := range prediction.Highlights() {
		if segment.Matched {
			b.WriteString("[" + segment.Text + "]")
		} else {
			b.WriteString(segment.Text)
		}
	}
	return b.String()
}

func writePlace(b *strings.Builder, snapshot models.SessionSnapshot) {
	place := snapshot.Selected
	b.WriteString(place.Name)
	if place.FormattedAddress != "" {
		b.WriteString("\n  " + place.FormattedAddress)
	}
	if place.Rating != nil {
		fmt.Fprintf(b, "\n  %s%s %.1f",
			strings.Repeat("*", place.Stars()), strings.Repeat(".", 5-place.Stars()), *place.Rating)
	}
	if place.OpeningHours != nil {
		if place.OpeningHours.OpenNow {
			b.WriteString("\n  Open now")
		} else {
			b.WriteString("\n  Closed")
		}
	}
	if place.PhoneNumber != "" {
		b.WriteString("\n  " + place.PhoneNumber)
	}
	if place.Website != "" {
		b.WriteString("\n  " + place.Website)
	}
	if types := place.TopTypes(3); len(types) > 0 {
		labels := make([]string, len(types))
		for i, t := range types {
			labels[i] = strings.ReplaceAll(t, "_", " ")
		}
		b.WriteString("\n  " + strings.Join(labels, ", "))
	}
	if snapshot.Distance != "" {
		b.WriteString("\n  " + snapshot.Distance + " away")
	}
	region := snapshot.Region
	if region != common.DefaultRegion {
		fmt.Fprintf(b, "\n  map: %.4f, %.4f", region.Latitude, region.Longitude)
	}
}
