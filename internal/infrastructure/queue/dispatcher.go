package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sheetviz/access-api/internal/api/metrics"
	"github.com/sheetviz/access-api/internal/core/domain"
	"github.com/sheetviz/access-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher fans transition events out to notifiers on a fixed set of
// workers, sharded by user ID so that one user's notifications keep their order.
type Dispatcher struct {
	workers   []chan domain.TransitionEvent
	notifiers []ports.TransitionNotifier
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger, notifiers ...ports.TransitionNotifier) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.TransitionEvent, numWorkers),
		notifiers: notifiers,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.TransitionEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Publish implements ports.TransitionPublisher. Events are dropped, and
// counted, when the responsible worker is saturated.
func (d *Dispatcher) Publish(event domain.TransitionEvent) {
	if !d.tryEnqueue(event) {
		metrics.NotificationsDroppedTotal.Inc()
		d.log.Warn().
			Str("event_id", event.ID).
			Str("user_id", event.UserID).
			Msg("notification queue full, event dropped")
	}
}

func (d *Dispatcher) tryEnqueue(event domain.TransitionEvent) bool {
	idx := d.shardIndex(event.UserID)
	ch := d.workers[idx]
	select {
	case ch <- event:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(ch)))
		return true
	default:
		return false
	}
}

// shardIndex maps a user ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.TransitionEvent) {
	defer d.wg.Done()
	depth := metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			d.deliver(ctx, id, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, event domain.TransitionEvent) {
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			metrics.NotificationsTotal.WithLabelValues("error").Inc()
			d.log.Error().Err(err).
				Str("event_id", event.ID).
				Str("user_id", event.UserID).
				Int("worker_id", workerID).
				Msg("notification delivery failed")
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
	}
}
