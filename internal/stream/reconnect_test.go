package stream

import (
	"testing"
	"time"
)

func TestPolicy_Decide(t *testing.T) {
	p := Policy{Delay: 50 * time.Millisecond}

	tests := []struct {
		name      string
		trigger   Trigger
		state     State
		wantDelay time.Duration
		wantOK    bool
	}{
		{"error waits", TriggerError, StateError, 50 * time.Millisecond, true},
		{"error while streaming ignored", TriggerError, StateStreaming, 0, false},
		{"restart while streaming", TriggerRestart, StateStreaming, 0, true},
		{"restart while connecting", TriggerRestart, StateConnecting, 0, true},
		{"restart during error", TriggerRestart, StateError, 0, true},
		{"manual", TriggerManual, StateStreaming, 0, true},
		{"closed restart", TriggerRestart, StateClosed, 0, false},
		{"closed error", TriggerError, StateClosed, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, ok := p.Decide(tt.trigger, tt.state)
			if delay != tt.wantDelay || ok != tt.wantOK {
				t.Errorf("Decide = (%v, %v), want (%v, %v)", delay, ok, tt.wantDelay, tt.wantOK)
			}
		})
	}
}

func TestPolicy_DefaultDelay(t *testing.T) {
	delay, ok := Policy{}.Decide(TriggerError, StateError)
	if !ok || delay != DefaultReconnectDelay {
		t.Errorf("Decide = (%v, %v), want (%v, true)", delay, ok, DefaultReconnectDelay)
	}
}

func TestKeySource_StrictlyIncreasing(t *testing.T) {
	var k KeySource

	steps := []struct{ candidate, want int64 }{
		{0, 1},
		{1000, 1000},
		{1000, 1001},
		{500, 1002},
		{5000, 5000},
	}
	for _, s := range steps {
		if got := k.Next(s.candidate); got != s.want {
			t.Errorf("Next(%d) = %d, want %d", s.candidate, got, s.want)
		}
	}
	if k.Last() != 5000 {
		t.Errorf("Last = %d", k.Last())
	}
}

func TestTrigger_String(t *testing.T) {
	if TriggerRestart.String() != "restart" || Trigger(9).String() != "unknown" {
		t.Error("unexpected trigger names")
	}
}
