package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

// Caller identifies whose selection is read or changed. OwnerID is empty for
// anonymous callers.
type Caller struct {
	Client  string
	OwnerID string
}

func (c Caller) authenticated() bool { return c.OwnerID != "" }

// Change reasons
const (
	ReasonSelect  = "select"
	ReasonSignIn  = "sign_in"
	ReasonSignOut = "sign_out"
)

// Change is emitted whenever a caller's effective provider switches
type Change struct {
	Client        string
	OwnerID       string
	From          storage.Name
	To            storage.Name
	Authenticated bool
	Reason        string
}

type Listener func(ctx context.Context, change Change)

// View is the selection state reported to the client
type View struct {
	Provider      storage.Name
	Preference    storage.Name
	Authenticated bool
	Selectable    []storage.Name
}

// Manager applies selection transitions and persists their outcome
type Manager struct {
	mu        sync.Mutex
	policy    Policy
	store     PreferenceStore
	registry  *storage.Registry
	logger    *slog.Logger
	listeners []Listener
}

func NewManager(policy Policy, store PreferenceStore, registry *storage.Registry, logger *slog.Logger) *Manager {
	return &Manager{
		policy:   policy,
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// OnChange registers a listener; register all listeners before serving requests
func (m *Manager) OnChange(l Listener) {
	m.listeners = append(m.listeners, l)
}

// State reports the caller's current selection without changing it
func (m *Manager) State(ctx context.Context, caller Caller) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	machine, err := m.load(ctx, caller, signedIn)
	if err != nil {
		return View{}, err
	}
	return m.view(machine), nil
}

// Resolve returns the provider that serves the caller
func (m *Manager) Resolve(ctx context.Context, caller Caller) (storage.Provider, error) {
	m.mu.Lock()
	machine, err := m.load(ctx, caller, signedIn)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.registry.Resolve(ctx, machine.Effective(), caller.OwnerID)
}

func (m *Manager) Select(ctx context.Context, caller Caller, name storage.Name) (View, error) {
	return m.transition(ctx, caller, ReasonSelect, signedIn, func(machine *Machine) error {
		if !m.registry.Has(name) {
			return fmt.Errorf("%w: %q is not configured", domain.ErrProviderNotSelectable, name)
		}
		return machine.Select(name)
	})
}

func (m *Manager) SignIn(ctx context.Context, caller Caller) (View, error) {
	if !caller.authenticated() {
		return View{}, domain.ErrAuthRequired
	}
	// the transition starts from the anonymous state the caller is leaving
	return m.transition(ctx, caller, ReasonSignIn, anonymous, func(machine *Machine) error {
		return machine.SignIn()
	})
}

func (m *Manager) SignOut(ctx context.Context, caller Caller) (View, error) {
	// a caller whose token is already gone still signs out of hosted
	wasSignedIn := func(c Caller, pref storage.Name) bool {
		return c.authenticated() || pref == storage.NameHosted
	}
	return m.transition(ctx, caller, ReasonSignOut, wasSignedIn, func(machine *Machine) error {
		machine.SignOut()
		return nil
	})
}

func (m *Manager) transition(ctx context.Context, caller Caller, reason string, start authState, apply func(*Machine) error) (View, error) {
	m.mu.Lock()
	machine, err := m.load(ctx, caller, start)
	if err != nil {
		m.mu.Unlock()
		return View{}, err
	}

	from := machine.Effective()
	if err := apply(machine); err != nil {
		m.mu.Unlock()
		m.logger.Warn("Rejected provider change",
			slog.String("client", caller.Client),
			slog.String("reason", reason),
			slog.String("active", string(from)),
			slog.Any("error", err),
		)
		return View{}, err
	}
	if err := m.store.Save(ctx, caller.Client, machine.Preference()); err != nil {
		m.mu.Unlock()
		return View{}, fmt.Errorf("failed to save provider preference: %w", err)
	}
	view := m.view(machine)
	m.mu.Unlock()

	if from != view.Provider {
		change := Change{
			Client:        caller.Client,
			OwnerID:       caller.OwnerID,
			From:          from,
			To:            view.Provider,
			Authenticated: view.Authenticated,
			Reason:        reason,
		}
		for _, l := range m.listeners {
			l(ctx, change)
		}
	}
	return view, nil
}

// authState decides whether a loaded machine starts signed in
type authState func(caller Caller, preference storage.Name) bool

func signedIn(c Caller, _ storage.Name) bool { return c.authenticated() }

func anonymous(Caller, storage.Name) bool { return false }

func (m *Manager) load(ctx context.Context, caller Caller, start authState) (*Machine, error) {
	pref, err := m.store.Load(ctx, caller.Client)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider preference: %w", err)
	}
	return NewMachine(m.policy, pref, start(caller, pref)), nil
}

func (m *Manager) view(machine *Machine) View {
	selectable := make([]storage.Name, 0, 3)
	for _, n := range Selectable(m.policy.Mode) {
		if m.registry.Has(n) {
			selectable = append(selectable, n)
		}
	}
	return View{
		Provider:      machine.Effective(),
		Preference:    machine.Preference(),
		Authenticated: machine.Authenticated(),
		Selectable:    selectable,
	}
}
