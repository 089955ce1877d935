package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jzx17/resilience/pkg/store"
	"github.com/jzx17/resilience/pkg/types"
)

// LastOnlineKey is the store key under which the monitor records the most
// recent offline-to-online transition.
const LastOnlineKey = "connectivity_last_online"

// Listener receives a snapshot of the active issue list after every change.
type Listener func(issues []Issue)

// Monitor tracks the online/offline signal and the set of active connection
// issues. At most one issue per code is active at a time; adding a code that
// is already active replaces it. All methods are safe for concurrent use.
type Monitor struct {
	mu        sync.Mutex
	issues    []Issue
	online    bool
	listeners map[int]Listener
	nextID    int

	clock  types.Clock
	logger *slog.Logger
	store  store.Store
}

// MonitorOption configures a Monitor
type MonitorOption func(*Monitor)

// WithClock sets the clock used for issue timestamps
func WithClock(clock types.Clock) MonitorOption {
	return func(m *Monitor) {
		m.clock = clock
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithStore sets a durable store for recording the last-online timestamp
func WithStore(s store.Store) MonitorOption {
	return func(m *Monitor) {
		m.store = s
	}
}

// NewMonitor creates a monitor. The initial state is online with no issues.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		online:    true,
		listeners: make(map[int]Listener),
		clock:     types.NewRealClock(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// IssueOption adjusts a created issue
type IssueOption func(*Issue)

// WithResolutionEstimate overrides the catalog's estimated resolution time
func WithResolutionEstimate(minutes int) IssueOption {
	return func(i *Issue) {
		i.EstimatedResolutionMinutes = minutes
	}
}

// CreateIssue builds a fully populated Issue from the catalog entry for code.
// It fails when the code is not registered; catalog completeness is a
// build-time concern, not something to recover from at runtime.
func (m *Monitor) CreateIssue(code Code, technicalDetails string, opts ...IssueOption) (Issue, error) {
	entry, err := LookupCode(code)
	if err != nil {
		return Issue{}, err
	}

	issue := Issue{
		Code:                       entry.Code,
		Severity:                   entry.Severity,
		Message:                    entry.Message,
		Description:                entry.Description,
		EstimatedResolutionMinutes: entry.EstimatedResolutionMinutes,
		Retryable:                  entry.Retryable,
		AffectedCapabilities:       entry.AffectedCapabilities,
		UserActions:                entry.UserActions,
		CreatedAt:                  m.clock.Now(),
		TechnicalDetails:           technicalDetails,
	}

	for _, opt := range opts {
		opt(&issue)
	}

	return issue, nil
}

// AddIssue activates an issue, replacing any active issue with the same code,
// and notifies all listeners with the updated list.
func (m *Monitor) AddIssue(issue Issue) {
	m.mu.Lock()
	kept := m.issues[:0]
	for _, existing := range m.issues {
		if existing.Code != issue.Code {
			kept = append(kept, existing)
		}
	}
	m.issues = append(kept, issue)
	snapshot := m.snapshotLocked()
	listeners := m.listenersLocked()
	m.mu.Unlock()

	m.logger.Info("connection issue active",
		"code", issue.Code,
		"severity", issue.Severity.String(),
		"retryable", issue.Retryable)

	m.notify(listeners, snapshot)
}

// RemoveIssue deactivates the issue with the given code. Listeners are
// notified only when the set actually changed.
func (m *Monitor) RemoveIssue(code Code) bool {
	m.mu.Lock()
	kept := m.issues[:0]
	removed := false
	for _, existing := range m.issues {
		if existing.Code == code {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	m.issues = kept
	var snapshot []Issue
	var listeners []Listener
	if removed {
		snapshot = m.snapshotLocked()
		listeners = m.listenersLocked()
	}
	m.mu.Unlock()

	if !removed {
		return false
	}

	m.logger.Info("connection issue resolved", "code", code)
	m.notify(listeners, snapshot)
	return true
}

// ClearAll removes every active issue with a single notification. Used when
// connectivity is confirmed restored.
func (m *Monitor) ClearAll() {
	m.mu.Lock()
	if len(m.issues) == 0 {
		m.mu.Unlock()
		return
	}
	m.issues = nil
	snapshot := m.snapshotLocked()
	listeners := m.listenersLocked()
	m.mu.Unlock()

	m.logger.Info("all connection issues cleared")
	m.notify(listeners, snapshot)
}

// Issues returns a snapshot of the active issues in insertion order.
func (m *Monitor) Issues() []Issue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// MostSevere returns the active issue with the highest severity. Severity
// ties go to the earliest-inserted issue. The second return is false when no
// issues are active.
func (m *Monitor) MostSevere() (Issue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.issues) == 0 {
		return Issue{}, false
	}

	most := m.issues[0]
	for _, issue := range m.issues[1:] {
		if issue.Severity > most.Severity {
			most = issue
		}
	}
	return most, true
}

// ReportError classifies a raw error/status signal from the network layer
// and, when it maps to a known issue code, activates the issue. The second
// return is false when the signal was not recognized.
func (m *Monitor) ReportError(err error, httpStatus int) (Issue, bool) {
	code, ok := Classify(err, httpStatus)
	if !ok {
		return Issue{}, false
	}

	details := ""
	if err != nil {
		details = err.Error()
	}

	issue, cerr := m.CreateIssue(code, details)
	if cerr != nil {
		// classifier and catalog disagree on registered codes
		m.logger.Error("classified to unregistered issue code", "code", code, "error", cerr)
		return Issue{}, false
	}

	m.AddIssue(issue)
	return issue, true
}

// SetOnline updates the online/offline signal. An offline-to-online
// transition is recorded in the durable store when one is configured.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	if online == wasOnline {
		return
	}

	m.logger.Info("connectivity changed", "online", online)

	if online && m.store != nil {
		stamp := m.clock.Now().UTC().Format(time.RFC3339Nano)
		if err := m.store.Set(ctx, LastOnlineKey, []byte(stamp)); err != nil {
			m.logger.Warn("failed to record last-online timestamp", "error", err)
		}
	}
}

// Online reports the current online/offline signal. Satisfies
// queue.ConnectivitySignal and capability.Signal.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// LastOnline returns the recorded offline-to-online transition time, if the
// monitor has a store and one was recorded.
func (m *Monitor) LastOnline(ctx context.Context) (time.Time, bool) {
	if m.store == nil {
		return time.Time{}, false
	}

	raw, err := m.store.Get(ctx, LastOnlineKey)
	if err != nil {
		return time.Time{}, false
	}
	stamp, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, false
	}
	return stamp, true
}

// Subscribe registers a listener for issue-list changes and returns its
// unsubscribe function. Listeners always receive a fresh snapshot, never a
// live reference.
func (m *Monitor) Subscribe(listener Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// snapshotLocked copies the active issue list. Callers must hold mu.
func (m *Monitor) snapshotLocked() []Issue {
	snapshot := make([]Issue, len(m.issues))
	copy(snapshot, m.issues)
	return snapshot
}

// listenersLocked copies the listener list so notification iterates a stable
// set even if a listener unsubscribes mid-delivery. Callers must hold mu.
func (m *Monitor) listenersLocked() []Listener {
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

// notify delivers the snapshot to each listener, isolating panics so one
// faulty listener cannot block delivery to the rest.
func (m *Monitor) notify(listeners []Listener, snapshot []Issue) {
	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("issue listener panicked", "panic", r)
				}
			}()
			// each listener gets its own copy
			issues := make([]Issue, len(snapshot))
			copy(issues, snapshot)
			listener(issues)
		}()
	}
}
