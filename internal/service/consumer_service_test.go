package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"nana-be/internal/pkg/logger"
	"nana-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeForwarder struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeForwarder) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeForwarder) received() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Event(nil), f.events...)
}

func TestUsageEventsReachForwarder(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fwd := &fakeForwarder{}
	consumer := NewConsumerService(pubSub, "usage", logger.NewNopLogger(), logger.NewNopLogger(), fwd)
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("usage", pubSub)
	at := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, publisher.PublishEvent(ctx, events.NewUploadCompletedEvent("sid", "a.pdf", 4, true, at)))
	require.NoError(t, publisher.Publish(ctx, []byte("not json")))
	require.NoError(t, publisher.PublishEvent(ctx, events.NewNotesCacheHitEvent("sid", "a.pdf", []int{1}, 4, at)))

	require.Eventually(t, func() bool { return len(fwd.received()) == 2 }, 2*time.Second, 10*time.Millisecond)

	got := fwd.received()
	assert.Equal(t, events.TypeUploadCompleted, got[0].EventType())
	assert.Equal(t, "a.pdf", got[0].Payload()["filename"])
	assert.True(t, got[0].Timestamp().Equal(at))
	assert.Equal(t, events.TypeNotesCacheHit, got[1].EventType())
}

func TestConsumerWithoutForwarder(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := t.TempDir() + "/usage.log"
	usage := logger.NewIsolatedLogger(path)
	consumer := NewConsumerService(pubSub, "usage", usage, logger.NewNopLogger(), nil)
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("usage", pubSub)
	require.NoError(t, publisher.PublishEvent(ctx, events.NewUploadFailedEvent("", "a.docx", "validating", "Only PDF files are accepted", time.Now())))

	require.Eventually(t, func() bool {
		_ = usage.Sync()
		entries, err := usage.GetLogs("INFO", 10, 0)
		return err == nil && len(entries) == 1 && entries[0].Message == events.TypeUploadFailed
	}, 2*time.Second, 10*time.Millisecond)
}
