package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/searchlab/ranksearch/pkg/config"
	"github.com/searchlab/ranksearch/pkg/kafka"
	"github.com/searchlab/ranksearch/pkg/metrics"
)

// Collector buffers analytics events in memory and publishes them to Kafka
// in batches, either when the batch is full or on a flush interval. Track
// never blocks the request path: when the buffer is full the event is
// dropped and counted.
type Collector struct {
	producer      *kafka.Producer
	eventCh       chan TypedEvent
	batchSize     int
	flushInterval time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
	dropped       atomic.Int64
	done          chan struct{}
}

// NewCollector creates a Collector. The metrics argument may be nil.
func NewCollector(producer *kafka.Producer, cfg config.AnalyticsConfig, m *metrics.Metrics) *Collector {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		producer:      producer,
		eventCh:       make(chan TypedEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		metrics:       m,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the background publish loop.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.publish(context.Background(), batch)
					return
				}
				batch = append(batch, kafka.Event{
					Key:   string(event.Kind()),
					Value: event,
				})
				if len(batch) >= c.batchSize {
					c.publish(ctx, batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				c.publish(ctx, batch)
				batch = batch[:0]
			case <-ctx.Done():
				batch = c.drainRemaining(batch)
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.publish(flushCtx, batch)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track enqueues an event without blocking. A full buffer drops the event.
func (c *Collector) Track(event TypedEvent) {
	select {
	case c.eventCh <- event:
		if c.metrics != nil {
			c.metrics.AnalyticsEvents.WithLabelValues(string(event.Kind())).Inc()
		}
	default:
		c.dropped.Add(1)
		if c.metrics != nil {
			c.metrics.AnalyticsDropped.Inc()
		}
		c.logger.Warn("analytics event dropped (buffer full)", "type", event.Kind())
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits for the publish loop to flush.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.producer.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics batch",
			"events", len(batch),
			"error", err,
		)
		return
	}
	c.logger.Debug("analytics batch published", "events", len(batch))
}

// drainRemaining empties whatever is still buffered in the channel so the
// final flush on shutdown carries it.
func (c *Collector) drainRemaining(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, kafka.Event{
				Key:   string(event.Kind()),
				Value: event,
			})
		default:
			return batch
		}
	}
}
