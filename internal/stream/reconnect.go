package stream

import (
	"sync"
	"time"
)

// DefaultReconnectDelay is the pause after a failed connection before retrying.
const DefaultReconnectDelay = 2 * time.Second

// Trigger is a reason to replace the current session.
type Trigger int

// Reconnect triggers.
const (
	// TriggerError follows a failed or ended connection.
	TriggerError Trigger = iota
	// TriggerRestart follows a newer restart in the restart record.
	TriggerRestart
	// TriggerManual is an explicit reconnect request.
	TriggerManual
)

func (t Trigger) String() string {
	switch t {
	case TriggerError:
		return "error"
	case TriggerRestart:
		return "restart"
	case TriggerManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Policy decides when a new session should start.
type Policy struct {
	// Delay before retrying after an error. Zero means DefaultReconnectDelay.
	Delay time.Duration
}

// Decide returns how long to wait before starting a new session, or false when
// no new session should be started. A restart makes the current connection
// stale rather than failed, so it reconnects without delay.
func (p Policy) Decide(trigger Trigger, state State) (time.Duration, bool) {
	if state == StateClosed {
		return 0, false
	}
	switch trigger {
	case TriggerError:
		if state != StateError {
			return 0, false
		}
		if p.Delay <= 0 {
			return DefaultReconnectDelay, true
		}
		return p.Delay, true
	case TriggerRestart, TriggerManual:
		return 0, true
	}
	return 0, false
}

// KeySource hands out strictly increasing session keys.
type KeySource struct {
	mu   sync.Mutex
	last int64
}

// Next returns candidate, or last+1 if candidate would not be newer than the
// previous key.
func (k *KeySource) Next(candidate int64) int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if candidate <= k.last {
		candidate = k.last + 1
	}
	k.last = candidate
	return candidate
}

// Last returns the most recent key.
func (k *KeySource) Last() int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.last
}
