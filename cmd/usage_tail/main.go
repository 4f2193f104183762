// usage_tail prints usage events forwarded to NATS JetStream as they arrive.
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
	"syscall"

	"nana-be/internal/config"
	"nana-be/pkg/events"

	pktNats "nana-be/pkg/nats"

	"github.com/fatih/color"
)

func main() {
	eventType := flag.String("type", "", "only show this event type, e.g. AI_CALL_COMPLETED")
	durable := flag.String("durable", "", "durable consumer name; empty tails new events only")
	flag.Parse()

	cfg := config.Load()
	url := cfg.Events.NatsURL
	if url == "" {
		url = "nats://localhost:4222"
	}

	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	subject := pktNats.SubjectPrefix + ">"
	if *eventType != "" {
		subject = pktNats.Subject(*eventType)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, subject, *durable, func(ctx context.Context, event events.Event) error {
		printEvent(event)
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	color.Cyan("Tailing %s on %s (Ctrl+C to stop)", subject, url)
	<-ctx.Done()
}

func printEvent(event events.Event) {
	header := fmt.Sprintf("%s  %s", event.Timestamp().Format("15:04:05.000"), event.EventType())
	switch event.EventType() {
	case events.TypeAICallFailed, events.TypeUploadFailed:
		color.Red("%s", header)
	case events.TypeNotesCacheHit:
		color.Yellow("%s", header)
	default:
		color.Green("%s", header)
	}

	payload := event.Payload()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	fmt.Println("  " + strings.Join(parts, " "))
}
