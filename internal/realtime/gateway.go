package realtime

// ChannelActiveTimers is the shared channel every heartbeat and timer
// transition event is published to. Receivers filter client-side by the
// userId carried in the payload.
const ChannelActiveTimers = "timers:active"

const (
	EventTimerStarted   = "TIMER_STARTED"
	EventTimerPaused    = "TIMER_PAUSED"
	EventTimerResumed   = "TIMER_RESUMED"
	EventTimerStopped   = "TIMER_STOPPED"
	EventCreated        = "CREATED"
	EventUpdated        = "UPDATED"
	EventDeleted        = "DELETED"
	EventTimerHeartbeat = "TIMER_HEARTBEAT"
)

// Gateway is the real-time broadcast contract. Implementations must never
// block the caller; failures are reported through the error return and the
// caller decides whether they matter (for timer mutations they never do).
type Gateway interface {
	Emit(channel, event string, payload any) error
	EmitToUser(userID, event string, payload any) error
}
