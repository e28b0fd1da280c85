package ingest

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tkellerman/salesweather/internal/audit"
)

// fakeConsumer replays a fixed set of messages, then serves an endless
// stream of filler rows so the writer's consume loop never idles.
type fakeConsumer struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	filler    []byte
}

func (f *fakeConsumer) Consume(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) > 0 {
		msg := f.pending[0]
		f.pending = f.pending[1:]
		return msg, nil
	}
	return kafka.Message{Value: f.filler}, nil
}

func (f *fakeConsumer) Commit(ctx context.Context, msg kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msg)
	return nil
}

func (f *fakeConsumer) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

func TestBatchWriterCountsAndCommitsMalformedRows(t *testing.T) {
	consumer := &fakeConsumer{
		pending: []kafka.Message{
			{Value: []byte(`not json`)},
			{Value: []byte(`{"message_id": "m-1", "row_type": "menu_item", "payload": {}}`)},
		},
		filler: []byte(`not json`),
	}
	recorder := audit.NewMemoryRecorder()

	bw := NewBatchWriter(consumer, nil, recorder, 2, time.Hour)
	if err := bw.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for consumer.committedCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for offsets to be committed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	bw.Stop()

	count, err := recorder.Count(context.Background(), audit.ReasonMalformedFeedRow)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count < 2 {
		t.Errorf("Expected at least 2 malformed rows counted, got %d", count)
	}
}

func TestBatchWriterStopReleasesConsumeLoop(t *testing.T) {
	consumer := &fakeConsumer{filler: []byte(`not json`)}
	recorder := audit.NewMemoryRecorder()

	before := runtime.NumGoroutine()

	bw := NewBatchWriter(consumer, nil, recorder, 100, 10*time.Millisecond)
	if err := bw.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	bw.Stop()

	// The consume loop must exit once the writer stops draining, instead of
	// blocking forever on the message channel.
	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("Consume loop did not exit: %d goroutines before, %d after",
				before, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
