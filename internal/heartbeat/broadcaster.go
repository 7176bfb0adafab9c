package heartbeat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"teamboard/backend/internal/realtime"
	"teamboard/backend/internal/service"
)

// TimerSource yields one broadcast payload per active timer, durations
// already recomputed. Implemented by service.TimerService.
type TimerSource interface {
	ActiveTimerEvents(ctx context.Context) ([]service.EntryEvent, error)
}

// Broadcaster periodically pushes every active timer's live duration to the
// shared channel so connected clients stay in sync without polling. It is
// constructed once by the composition root and started/stopped explicitly;
// there is no package-level instance.
type Broadcaster struct {
	source   TimerSource
	gateway  realtime.Gateway
	logger   *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(source TimerSource, gateway realtime.Gateway, logger *zap.Logger, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Broadcaster{
		source:   source,
		gateway:  gateway,
		logger:   logger,
		interval: interval,
	}
}

// Start launches the loop. Calling Start on a running broadcaster is a no-op.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	b.started = true
	b.cancel = cancel
	b.done = done

	go b.run(ctx, done)
}

// Stop cancels the loop and waits for the in-flight tick to finish. A second
// Stop is a no-op.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	done := b.done
	b.started = false
	b.cancel = nil
	b.done = nil
	b.mu.Unlock()

	cancel()
	<-done
}

func (b *Broadcaster) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

// tick broadcasts one heartbeat per active timer. Every failure is isolated
// to this tick: queries and emits that go wrong are logged and the loop
// carries on at the next interval.
func (b *Broadcaster) tick(ctx context.Context) {
	events, err := b.source.ActiveTimerEvents(ctx)
	if err != nil {
		b.logger.Warn("heartbeat query failed", zap.Error(err))
		return
	}
	if len(events) == 0 {
		// Nothing running anywhere: no broadcast this tick.
		return
	}

	for _, event := range events {
		if err := b.gateway.Emit(realtime.ChannelActiveTimers, realtime.EventTimerHeartbeat, event); err != nil {
			b.logger.Warn("heartbeat broadcast failed",
				zap.String("userId", event.UserID),
				zap.Error(err),
			)
		}
	}
}
