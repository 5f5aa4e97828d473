// Package session implements the workflow-case layer built atop the
// occurrence engine. A Session owns one running marking; WorkItems
// represent the pending manual-transition bindings offered to a human
// or external actor. The core net and marking model nothing about
// "automatic" vs "manual" transitions or case lifecycle — that
// classification lives here, layered on top, so the core stays
// exactly what the data model describes.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go-petri-flow/internal/engine"
	"go-petri-flow/internal/marking"
	"go-petri-flow/internal/net"
	"go-petri-flow/internal/reachability"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusSuspended Status = "SUSPENDED"
	StatusAborted   Status = "ABORTED"
)

// TransitionKind classifies a transition for firing policy purposes:
// Auto transitions fire unattended whenever enabled; Manual
// transitions surface as work items awaiting an external decision.
type TransitionKind string

const (
	KindAuto   TransitionKind = "AUTO"
	KindManual TransitionKind = "MANUAL"
)

// Session is one running instance of a net: a marking plus lifecycle
// bookkeeping.
type Session struct {
	ID          string
	Name        string
	Status      Status
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Marking     *marking.Marking
	Variables   map[string]interface{}
}

// New creates a session in the CREATED state.
func New(id, name string) *Session {
	return &Session{
		ID:        id,
		Name:      name,
		Status:    StatusCreated,
		CreatedAt: time.Now(),
		Variables: make(map[string]interface{}),
	}
}

// Start transitions the session to RUNNING with the given marking.
func (s *Session) Start(initial *marking.Marking) {
	s.Status = StatusRunning
	now := time.Now()
	s.StartedAt = &now
	s.Marking = initial
}

// Complete marks the session COMPLETED.
func (s *Session) Complete() {
	s.Status = StatusCompleted
	now := time.Now()
	s.CompletedAt = &now
}

// Suspend marks a RUNNING session SUSPENDED.
func (s *Session) Suspend() {
	if s.Status == StatusRunning {
		s.Status = StatusSuspended
	}
}

// Resume marks a SUSPENDED session RUNNING again.
func (s *Session) Resume() {
	if s.Status == StatusSuspended {
		s.Status = StatusRunning
	}
}

// Abort marks the session ABORTED.
func (s *Session) Abort() {
	s.Status = StatusAborted
	now := time.Now()
	s.CompletedAt = &now
}

// IsActive reports whether the session can still fire transitions.
func (s *Session) IsActive() bool {
	return s.Status == StatusRunning || s.Status == StatusSuspended
}

// IsTerminated reports whether the session has reached a terminal state.
func (s *Session) IsTerminated() bool {
	return s.Status == StatusCompleted || s.Status == StatusAborted
}

// Clone deep-copies a session, including its marking.
func (s *Session) Clone() *Session {
	clone := &Session{
		ID:        s.ID,
		Name:      s.Name,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		Variables: make(map[string]interface{}, len(s.Variables)),
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		clone.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		clone.CompletedAt = &t
	}
	if s.Marking != nil {
		clone.Marking = s.Marking.Clone()
	}
	for k, v := range s.Variables {
		clone.Variables[k] = v
	}
	return clone
}

// WorkItemStatus is the lifecycle state of a WorkItem.
type WorkItemStatus string

const (
	WorkItemCreated   WorkItemStatus = "CREATED"
	WorkItemOffered   WorkItemStatus = "OFFERED"
	WorkItemAllocated WorkItemStatus = "ALLOCATED"
	WorkItemCompleted WorkItemStatus = "COMPLETED"
	WorkItemCancelled WorkItemStatus = "CANCELLED"
)

// WorkItem represents one pending manual-transition binding awaiting
// an external decision: whether to fire it, and under which of
// possibly several enabling bindings.
type WorkItem struct {
	ID           string
	SessionID    string
	Transition   string
	Status       WorkItemStatus
	CreatedAt    time.Time
	AllocatedTo  string
	Binding      engine.Binding
}

// Manager owns a set of sessions against one net, driving them through
// the engine. It deliberately has no hierarchical sub-workflow
// machinery: the core's SubnetRef is a structural link only and is
// never interpreted by this layer.
type Manager struct {
	mu         sync.RWMutex
	net        *net.Net
	engine     *engine.Engine
	kinds      map[string]TransitionKind
	sessions   map[string]*Session
	workItems  map[string]*WorkItem
	nextItemID int
}

// NewManager creates a Manager driving sessions of n through e. Every
// transition defaults to KindAuto until overridden with SetKind.
func NewManager(n *net.Net, e *engine.Engine) *Manager {
	return &Manager{
		net:       n,
		engine:    e,
		kinds:     make(map[string]TransitionKind),
		sessions:  make(map[string]*Session),
		workItems: make(map[string]*WorkItem),
	}
}

// SetKind classifies a transition as automatic or manual.
func (m *Manager) SetKind(transition string, kind TransitionKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds[transition] = kind
}

func (m *Manager) kindOf(name string) TransitionKind {
	if k, ok := m.kinds[name]; ok {
		return k
	}
	return KindAuto
}

// CreateSession registers a new session in the CREATED state.
func (m *Manager) CreateSession(id, name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session %s already exists", id)
	}
	s := New(id, name)
	m.sessions[id] = s
	return s, nil
}

// StartSession moves a session to RUNNING with the given initial marking.
func (m *Manager) StartSession(id string, initial *marking.Marking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	if s.Status != StatusCreated {
		return fmt.Errorf("session %s is not in CREATED status, current status: %s", id, s.Status)
	}
	s.Start(initial)
	return nil
}

// Mutate applies fn to the live session identified by id under the
// manager's lock, for simple lifecycle flips (Suspend/Resume/Abort)
// that don't need their own dedicated method.
func (m *Manager) Mutate(id string, fn func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	fn(s)
	return nil
}

// GetSession retrieves a clone of a session by ID.
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return s.Clone(), nil
}

// RunAuto fires every enabled Auto transition repeatedly until none
// remain enabled, advancing the clock between stalls when doing so
// unblocks a timed token. Returns the number of firings.
func (m *Manager) RunAuto(id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return 0, fmt.Errorf("session %s not found", id)
	}
	if s.Status != StatusRunning {
		return 0, fmt.Errorf("session %s is not running, current status: %s", id, s.Status)
	}

	fired := 0
	for {
		progressed, err := m.fireOneAuto(s)
		if err != nil {
			return fired, err
		}
		if progressed {
			fired++
			continue
		}
		if s.Marking.AdvanceClock() {
			continue
		}
		break
	}
	return fired, nil
}

// fireOneAuto fires the first enabled Auto transition, in the net's
// insertion order, and reports whether it fired one.
func (m *Manager) fireOneAuto(s *Session) (bool, error) {
	for _, t := range m.net.Transitions {
		if m.kindOf(t.Name) != KindAuto {
			continue
		}
		found, ok, err := m.engine.FindBinding(t, s.Marking)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if err := m.engine.Fire(t, s.Marking, found); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// RefreshWorkItems scans for Manual transitions enabled in a running
// session and creates a CREATED work item for each binding not
// already represented, using FindAllBindings so that several distinct
// enabling bindings of the same transition surface as distinct items.
func (m *Manager) RefreshWorkItems(id string) ([]*WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if s.Status != StatusRunning {
		return nil, fmt.Errorf("session %s is not running, current status: %s", id, s.Status)
	}

	existing := make(map[string]bool)
	for _, item := range m.workItems {
		if item.SessionID == id {
			existing[item.Transition+"|"+reachability.DefaultBindingKey(item.Binding)] = true
		}
	}

	var created []*WorkItem
	for _, t := range m.net.Transitions {
		if m.kindOf(t.Name) != KindManual {
			continue
		}
		bindings, err := m.engine.FindAllBindings(t, s.Marking)
		if err != nil {
			return nil, err
		}
		for _, b := range bindings {
			key := t.Name + "|" + reachability.DefaultBindingKey(b)
			if existing[key] {
				continue
			}
			existing[key] = true
			item := &WorkItem{
				ID:         fmt.Sprintf("wi-%d", m.nextItemID),
				SessionID:  id,
				Transition: t.Name,
				Status:     WorkItemCreated,
				CreatedAt:  time.Now(),
				Binding:    b,
			}
			m.nextItemID++
			m.workItems[item.ID] = item
			created = append(created, item)
		}
	}
	return created, nil
}

// ListWorkItems returns the work items for a session, most recently
// created first.
func (m *Manager) ListWorkItems(sessionID string) []*WorkItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*WorkItem
	for _, item := range m.workItems {
		if item.SessionID == sessionID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items
}

// Allocate assigns a work item to a resource.
func (m *Manager) Allocate(itemID, resource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.workItems[itemID]
	if !ok {
		return fmt.Errorf("work item %s not found", itemID)
	}
	item.Status = WorkItemAllocated
	item.AllocatedTo = resource
	return nil
}

// Complete fires the work item's transition under its captured
// binding and removes it. If the session completes as a result (no
// enabled transitions remain anywhere), the session is marked
// COMPLETED.
func (m *Manager) Complete(itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.workItems[itemID]
	if !ok {
		return fmt.Errorf("work item %s not found", itemID)
	}
	s, ok := m.sessions[item.SessionID]
	if !ok {
		return fmt.Errorf("session %s not found", item.SessionID)
	}
	if s.Status != StatusRunning {
		return fmt.Errorf("session %s is not running, current status: %s", item.SessionID, s.Status)
	}

	transition := m.net.LookupTransition(item.Transition)
	if transition == nil {
		return fmt.Errorf("transition %s not found", item.Transition)
	}
	if err := m.engine.Fire(transition, s.Marking, item.Binding); err != nil {
		return fmt.Errorf("failed to fire transition %s: %w", item.Transition, err)
	}
	item.Status = WorkItemCompleted
	delete(m.workItems, itemID)

	enabled, err := m.engine.EnabledTransitions(s.Marking)
	if err != nil {
		return err
	}
	if len(enabled) == 0 && !s.Marking.AdvanceClock() {
		s.Complete()
	}
	return nil
}

// Explore builds the reachability graph rooted at a session's current
// marking, letting a caller inspect the state space reachable from
// wherever a running session happens to be rather than only from the
// net's initial marking.
func (m *Manager) Explore(id string, opts ...reachability.Option) (*reachability.Graph, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if s.Marking == nil {
		return nil, fmt.Errorf("session %s has not been started", id)
	}
	builder := reachability.NewBuilder(m.net, m.engine, opts...)
	return builder.Build(s.Marking.Clone())
}

// Cancel discards a work item without firing its transition.
func (m *Manager) Cancel(itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.workItems[itemID]
	if !ok {
		return fmt.Errorf("work item %s not found", itemID)
	}
	item.Status = WorkItemCancelled
	delete(m.workItems, itemID)
	return nil
}
