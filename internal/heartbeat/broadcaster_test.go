package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teamboard/backend/internal/model"
	"teamboard/backend/internal/service"
)

type stubSource struct {
	mu     sync.Mutex
	events []service.EntryEvent
	err    error
	calls  int
}

func (s *stubSource) ActiveTimerEvents(context.Context) ([]service.EntryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSource) set(events []service.EntryEvent, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	s.err = err
}

type emission struct {
	Channel string
	Event   string
	Payload any
}

type recordingGateway struct {
	mu      sync.Mutex
	err     error
	emitted []emission
}

func (g *recordingGateway) Emit(channel, event string, payload any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.emitted = append(g.emitted, emission{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (g *recordingGateway) EmitToUser(string, string, any) error { return nil }

func (g *recordingGateway) snapshot() []emission {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]emission, len(g.emitted))
	copy(out, g.emitted)
	return out
}

func activeEvent(userID string) service.EntryEvent {
	return service.EntryEvent{
		Entry: service.EntryView{
			TimeEntry: model.TimeEntry{ID: "entry-" + userID, UserID: userID, IsActive: true},
			UserName:  "Someone",
		},
		UserID: userID,
	}
}

func TestBroadcastsOneHeartbeatPerActiveTimer(t *testing.T) {
	source := &stubSource{events: []service.EntryEvent{activeEvent("user-1"), activeEvent("user-2")}}
	gateway := &recordingGateway{}

	b := New(source, gateway, zap.NewNop(), 10*time.Millisecond)
	b.Start()
	defer b.Stop()

	require.Eventually(t, func() bool {
		return len(gateway.snapshot()) >= 2
	}, time.Second, 5*time.Millisecond)

	emitted := gateway.snapshot()
	assert.Equal(t, "timers:active", emitted[0].Channel)
	assert.Equal(t, "TIMER_HEARTBEAT", emitted[0].Event)
	userIDs := map[string]bool{}
	for _, e := range emitted[:2] {
		event, ok := e.Payload.(service.EntryEvent)
		require.True(t, ok)
		userIDs[event.UserID] = true
	}
	assert.Len(t, userIDs, 2, "each timer is tagged with its owner")
}

func TestNoBroadcastWhenNothingActive(t *testing.T) {
	source := &stubSource{}
	gateway := &recordingGateway{}

	b := New(source, gateway, zap.NewNop(), 10*time.Millisecond)
	b.Start()
	defer b.Stop()

	require.Eventually(t, func() bool {
		return source.callCount() >= 3
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, gateway.snapshot(), "idle ticks must not emit anything")
}

func TestTickFailuresDoNotStopTheLoop(t *testing.T) {
	source := &stubSource{err: errors.New("store down")}
	gateway := &recordingGateway{}

	b := New(source, gateway, zap.NewNop(), 10*time.Millisecond)
	b.Start()
	defer b.Stop()

	// Let a few failing ticks pass, then recover the source.
	require.Eventually(t, func() bool {
		return source.callCount() >= 3
	}, time.Second, 5*time.Millisecond)

	source.set([]service.EntryEvent{activeEvent("user-1")}, nil)
	require.Eventually(t, func() bool {
		return len(gateway.snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestGatewayFailuresAreSwallowed(t *testing.T) {
	source := &stubSource{events: []service.EntryEvent{activeEvent("user-1")}}
	gateway := &recordingGateway{err: errors.New("gateway unreachable")}

	b := New(source, gateway, zap.NewNop(), 10*time.Millisecond)
	b.Start()
	defer b.Stop()

	// The loop keeps polling even though every emit fails.
	require.Eventually(t, func() bool {
		return source.callCount() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	source := &stubSource{}
	gateway := &recordingGateway{}

	b := New(source, gateway, zap.NewNop(), 10*time.Millisecond)
	b.Start()
	b.Start()

	require.Eventually(t, func() bool {
		return source.callCount() >= 1
	}, time.Second, 5*time.Millisecond)

	b.Stop()
	calls := source.callCount()
	b.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, source.callCount(), "no ticks after stop")
}
