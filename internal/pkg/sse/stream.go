// Package sse frames server-sent events onto a fasthttp body stream writer.
package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"time"
)

const (
	ContentType = "text/event-stream"
	ping        = ": ping\n\n"
)

// Headers must be set before the body stream writer is installed.
var Headers = map[string]string{
	"Content-Type":      ContentType,
	"Cache-Control":     "no-cache",
	"Connection":        "keep-alive",
	"X-Accel-Buffering": "no",
}

// WriteEvent writes v as a single `data:` frame and flushes it.
func WriteEvent(w *bufio.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

// WritePing writes an SSE comment that clients ignore.
func WritePing(w *bufio.Writer) error {
	if _, err := w.WriteString(ping); err != nil {
		return err
	}
	return w.Flush()
}

// Pump writes every value received on events until the channel is closed,
// with a heartbeat comment whenever the channel has been quiet for interval.
// On the first write failure it calls cancel and drains events so the
// producer is never left blocked.
func Pump[T any](w *bufio.Writer, events <-chan T, interval time.Duration, cancel context.CancelFunc) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	fail := func(err error) error {
		cancel()
		for range events {
		}
		return err
	}

	for {
		select {
		case <-heartbeat.C:
			if err := WritePing(w); err != nil {
				return fail(err)
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := WriteEvent(w, ev); err != nil {
				return fail(err)
			}
			heartbeat.Reset(interval)
		}
	}
}
