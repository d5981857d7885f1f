// Package circuit generalizes the per-backend circuit breaker described in
// 4.M: Closed/Open/HalfOpen states, one breaker per backend name, falling
// back silently when a breaker is Open.
package circuit

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Settings configures a breaker. Window is the rolling window used to
// evaluate FailureThreshold; Cooldown is how long a tripped breaker stays
// Open before allowing a HalfOpen probe.
type Settings struct {
	FailureThreshold uint32
	Window           time.Duration
	Cooldown         time.Duration
}

// DefaultSettings matches the spec's generic circuit-breaker guidance:
// trip after 5 failures in a minute, cool down for 30s.
func DefaultSettings() Settings {
	return Settings{FailureThreshold: 5, Window: time.Minute, Cooldown: 30 * time.Second}
}

// Manager owns one gobreaker.CircuitBreaker per named backend (llm,
// web_research, social_sentiment, ...), created lazily on first use.
type Manager struct {
	mu       sync.Mutex
	settings Settings
	breakers map[string]*gobreaker.CircuitBreaker
	onChange func(name string, from, to gobreaker.State)
}

// NewManager creates a Manager with the given default Settings for all
// backends that haven't been configured individually via Configure.
func NewManager(settings Settings) *Manager {
	return &Manager{
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// OnStateChange registers a callback invoked whenever any breaker
// transitions state; the pipeline wires this to the Progress Broker (4.D)
// so operators see "backend X opened" as a log event.
func (m *Manager) OnStateChange(fn func(name string, from, to gobreaker.State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *Manager) breaker(name string) *gobreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}
	st := m.settings
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // one probe allowed in HalfOpen
		Interval:    st.Window,
		Timeout:     st.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= st.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.mu.Lock()
			cb := m.onChange
			m.mu.Unlock()
			if cb != nil {
				cb(name, from, to)
			}
		},
	})
	m.breakers[name] = b
	return b
}

// ErrOpen is returned (wrapped) by gobreaker when a breaker is Open; callers
// should treat it as "use the fallback", not as a fatal pipeline error.
var ErrOpen = gobreaker.ErrOpenState

// Do executes fn through the named backend's breaker. When the breaker is
// Open, fn is never called and ErrOpen is returned immediately so the
// caller can fall back (4.M: "calls return the fallback immediately").
func (m *Manager) Do(_ context.Context, backend string, fn func() (any, error)) (any, error) {
	b := m.breaker(backend)
	return b.Execute(fn)
}

// State reports the current state of a named backend's breaker, mostly for
// status()/health reporting.
func (m *Manager) State(backend string) gobreaker.State {
	return m.breaker(backend).State()
}
