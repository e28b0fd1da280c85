package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tkellerman/salesweather/internal/audit"
	"github.com/tkellerman/salesweather/internal/database"
	"github.com/tkellerman/salesweather/internal/harmonize"
	"github.com/tkellerman/salesweather/internal/source"
)

// Consumer is the feed-consuming surface the writer reads from.
// *queue.Consumer implements it.
type Consumer interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// BatchWriter consumes marketplace feed rows from Kafka and batch-writes
// them to the database. Rows are assumed schema-conformant; a malformed
// envelope is skipped and counted, never fatal.
type BatchWriter struct {
	consumer      Consumer
	db            *database.DB
	recorder      audit.Recorder
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewBatchWriter creates a new feed batch writer
func NewBatchWriter(consumer Consumer, db *database.DB, recorder audit.Recorder, batchSize int, flushInterval time.Duration) *BatchWriter {
	return &BatchWriter{
		consumer:      consumer,
		db:            db,
		recorder:      recorder,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to the database
func (bw *BatchWriter) Start(ctx context.Context) error {
	bw.wg.Add(1)
	go bw.run(ctx)
	return nil
}

// Stop stops the batch writer gracefully
func (bw *BatchWriter) Stop() {
	close(bw.stopCh)
	bw.wg.Wait()
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer bw.wg.Done()

	var batch []kafka.Message
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := bw.consumer.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case <-bw.stopCh:
					return
				default:
				}
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			select {
			case msgChan <- msg:
			case <-bw.stopCh:
				return
			}
		}
	}()

	for {
		select {
		case <-bw.stopCh:
			// Flush remaining batch before stopping
			if len(batch) > 0 {
				bw.flush(ctx, batch)
			}
			return

		case <-ticker.C:
			if len(batch) > 0 {
				fmt.Printf("Flush interval reached (%d rows), flushing...\n", len(batch))
				bw.flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgChan:
			batch = append(batch, msg)

			if len(batch) >= bw.batchSize {
				fmt.Printf("Batch full (%d rows), flushing...\n", len(batch))
				bw.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (bw *BatchWriter) flush(ctx context.Context, batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}

	successCount := 0
	for _, msg := range batch {
		if err := bw.processMessage(ctx, msg); err != nil {
			fmt.Printf("Failed to process feed row: %v\n", err)
			bw.recorder.Exclude(ctx, audit.ReasonMalformedFeedRow, 1)
		} else {
			successCount++
		}

		// Commit offset either way; malformed rows are counted, not retried
		if err := bw.consumer.Commit(ctx, msg); err != nil {
			fmt.Printf("Failed to commit offset: %v\n", err)
		}
	}

	fmt.Printf("Flushed batch of %d feed rows to database\n", successCount)
}

func (bw *BatchWriter) processMessage(ctx context.Context, msg kafka.Message) error {
	feedMsg, err := DecodeFeedMessage(msg.Value)
	if err != nil {
		return fmt.Errorf("failed to decode feed message: %w", err)
	}

	switch feedMsg.RowType {
	case RowTypeWeatherObservation:
		return bw.writeWeatherRow(feedMsg)
	case RowTypeGeoReference:
		return bw.writeGeoRow(feedMsg)
	default:
		return fmt.Errorf("unknown feed row type: %s", feedMsg.RowType)
	}
}

func (bw *BatchWriter) writeWeatherRow(msg *FeedMessage) error {
	row, err := DecodeWeatherRow(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode weather row: %w", err)
	}

	date, err := row.ParsedDate()
	if err != nil {
		return err
	}

	obs := &source.WeatherObservation{
		PostalCode:           row.PostalCode,
		Country:              row.Country,
		Date:                 harmonize.DateOnly(date),
		AvgTemperatureF:      row.AvgTemperatureF,
		TotalPrecipitationIn: row.TotalPrecipitationIn,
		MaxWindSpeedMPH:      row.MaxWindSpeedMPH,
	}

	if err := bw.db.UpsertWeatherObservation(obs); err != nil {
		return fmt.Errorf("failed to upsert weather observation: %w", err)
	}
	return nil
}

func (bw *BatchWriter) writeGeoRow(msg *FeedMessage) error {
	row, err := DecodeGeoRow(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode geo row: %w", err)
	}

	ref := &source.GeoReference{
		PostalCode: row.PostalCode,
		Country:    row.Country,
		CityName:   row.CityName,
	}

	if err := bw.db.UpsertGeoReference(ref); err != nil {
		return fmt.Errorf("failed to upsert geo reference: %w", err)
	}
	return nil
}
