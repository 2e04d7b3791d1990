package stream

import (
	"context"
	"sync"
	"time"
)

// FPSWindow is the trailing window over which frames are counted.
const FPSWindow = time.Second

// Meter counts frame arrivals within a trailing window.
type Meter struct {
	mu       sync.Mutex
	window   time.Duration
	arrivals []time.Time
	fps      int
}

// NewMeter creates a meter with a one second window.
func NewMeter() *Meter {
	return &Meter{window: FPSWindow}
}

// Observe records a frame arrival. Arrivals are expected in order.
func (m *Meter) Observe(at time.Time) {
	m.mu.Lock()
	m.arrivals = append(m.arrivals, at)
	m.mu.Unlock()
}

// Recompute drops arrivals older than now minus the window and returns the
// number left, which FPS reports until the next call.
func (m *Meter) Recompute(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-m.window)
	i := 0
	for i < len(m.arrivals) && m.arrivals[i].Before(cutoff) {
		i++
	}
	// Shift instead of reslicing so the backing array does not grow forever.
	n := copy(m.arrivals, m.arrivals[i:])
	clear(m.arrivals[n:])
	m.arrivals = m.arrivals[:n]

	m.fps = n
	return n
}

// FPS returns the last recomputed value.
func (m *Meter) FPS() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fps
}

// Reset forgets all arrivals.
func (m *Meter) Reset() {
	m.mu.Lock()
	m.arrivals = nil
	m.fps = 0
	m.mu.Unlock()
}

// runMeter recomputes m every interval until ctx is done.
func runMeter(ctx context.Context, m *Meter, interval time.Duration, now func() time.Time, publish func(int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fps := m.Recompute(now())
			if fps != last && publish != nil {
				publish(fps)
			}
			last = fps
		}
	}
}
