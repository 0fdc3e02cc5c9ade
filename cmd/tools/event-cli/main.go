package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/eventbus"
)

const timeFormat = "15:04:05.000"

func main() {
	var (
		natsURL    = flag.String("nats", "nats://127.0.0.1:4222", "NATS server address")
		stream     = flag.String("stream", "CUBE_EVENTS", "JetStream stream name")
		command    = flag.String("cmd", "tail", "Command: tail, stats, types")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		runID      = flag.String("run", "", "Run ID filter")
		fromStart  = flag.Bool("from-start", false, "Read the stream from the beginning")
		limit      = flag.Int("limit", 0, "Stop after N events (0 = no limit)")
		window     = flag.Duration("for", 0, "Stop after this duration (0 = until Ctrl+C)")
	)
	flag.Parse()

	if *command == "types" {
		showTypes()
		return
	}

	types := parseStringList(*eventTypes)
	for _, t := range types {
		if _, ok := event.ParseKind(t); !ok {
			log.Fatalf("❌ Unknown event type: %s (see -cmd types)", t)
		}
	}

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()
	bus.DeliverAll = *fromStart

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *window > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *window)
		defer cancel()
	}

	c := &counter{byType: make(map[string]int), limit: *limit, stop: stop}
	verbose := *command == "tail"
	switch *command {
	case "tail", "stats":
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, types")
		os.Exit(1)
	}

	_, err = bus.Subscribe(ctx, eventbus.Filter{Types: types}, func(_ context.Context, ev *eventbus.Envelope) {
		if *runID != "" && ev.RunID != *runID {
			return
		}
		if verbose {
			printEvent(ev)
		}
		c.add(ev.EventType)
	})
	if err != nil {
		log.Fatalf("❌ Subscribe failed: %v", err)
	}

	fmt.Printf("🎬 Listening on %s (stream %s, types: %s)\n", *natsURL, *stream, orAll(types))
	<-ctx.Done()
	c.print()
}

// counter считает события по типу и останавливает чтение после limit
type counter struct {
	mu     sync.Mutex
	byType map[string]int
	total  int
	limit  int
	stop   func()
}

func (c *counter) add(typ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byType[typ]++
	c.total++
	if c.limit > 0 && c.total >= c.limit {
		c.stop()
	}
}

func (c *counter) print() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Printf("\n📊 Total events: %d\n", c.total)
	names := make([]string, 0, len(c.byType))
	for name := range c.byType {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return c.byType[names[i]] > c.byType[names[j]] })
	for _, name := range names {
		fmt.Printf("  %-24s %d\n", name, c.byType[name])
	}
}

func printEvent(ev *eventbus.Envelope) {
	run := ev.RunID
	if len(run) > 8 {
		run = run[:8]
	}
	fmt.Printf("[%s] %-22s run=%s stage=%d t=%7.2f %s\n",
		ev.Timestamp.Local().Format(timeFormat), ev.EventType, run, ev.Stage, ev.SimTime, ev.Payload)
}

func showTypes() {
	fmt.Println("Event types:")
	for _, k := range event.Kinds() {
		fmt.Printf("  %-24s priority=%d\n", k, eventbus.Priority(k))
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func orAll(types []string) string {
	if len(types) == 0 {
		return "all"
	}
	return strings.Join(types, ",")
}
