package project

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// CreatedEvent is dispatched after a project has been persisted.
type CreatedEvent struct {
	Project *Project

	mu       sync.Mutex
	warnings []string
}

// AddWarning attaches a user-facing soft warning to the event. Warnings never
// undo the save.
func (e *CreatedEvent) AddWarning(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.warnings = append(e.warnings, msg)
}

// Warnings returns the warnings attached so far.
func (e *CreatedEvent) Warnings() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, len(e.warnings))
	copy(out, e.warnings)

	return out
}

// Listener reacts to a created project. Listeners run synchronously in
// subscription order.
type Listener interface {
	ProjectCreated(ctx context.Context, ev *CreatedEvent)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev *CreatedEvent)

// ProjectCreated calls f.
func (f ListenerFunc) ProjectCreated(ctx context.Context, ev *CreatedEvent) {
	f(ctx, ev)
}

// Result is what a caller gets back from Create or Reprovision.
type Result struct {
	Project  *Project `json:"project"`
	Warnings []string `json:"warnings,omitempty"`
}

// ErrInvalidName is returned when a project name is blank.
var ErrInvalidName = errors.New("project: name is required")

// Service owns the project lifecycle.
type Service struct {
	store  *Store
	logger *slog.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// NewService creates a Service backed by store.
func NewService(store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{store: store, logger: logger}
}

// Subscribe registers l for created events.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, l)
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id int64) (*Project, error) {
	return s.store.Get(ctx, id)
}

// List returns all projects, newest first.
func (s *Service) List(ctx context.Context) ([]*Project, error) {
	return s.store.List(ctx)
}

// Create persists a project and dispatches its created event. An error is
// returned only when the project could not be saved.
func (s *Service) Create(ctx context.Context, name, comment string) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	p, err := s.store.Create(ctx, name, strings.TrimSpace(comment))
	if err != nil {
		return nil, err
	}

	return s.dispatch(ctx, p), nil
}

// Reprovision dispatches the created event again for an existing project.
func (s *Service) Reprovision(ctx context.Context, id int64) (*Result, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reprovisioning project folder", slog.Int64("id", id))

	return s.dispatch(ctx, p), nil
}

func (s *Service) dispatch(ctx context.Context, p *Project) *Result {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	ev := &CreatedEvent{Project: p}
	for _, l := range listeners {
		l.ProjectCreated(ctx, ev)
	}

	// Listeners may have recorded a folder status; return the fresh row.
	if fresh, err := s.store.Get(ctx, p.ID); err == nil {
		p = fresh
	} else {
		s.logger.Warn("re-reading project after dispatch", slog.Int64("id", p.ID), slog.String("error", err.Error()))
	}

	return &Result{Project: p, Warnings: ev.Warnings()}
}
