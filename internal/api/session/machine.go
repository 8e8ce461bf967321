// Package session decides which storage provider serves a caller. The choice
// is an explicit state machine over {mock, relational, hosted} x {signed in,
// anonymous}; a signed-in caller is always served by the hosted backend.
package session

import (
	"fmt"
	"strings"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

// Deployment modes gate which providers can be selected
const (
	ModeDevelopment = "development"
	ModeHosted      = "hosted"
	ModeRelational  = "relational"
)

// Selectable lists the providers a deployment mode exposes
func Selectable(mode string) []storage.Name {
	switch strings.ToLower(mode) {
	case ModeHosted:
		return []storage.Name{storage.NameMock, storage.NameHosted}
	case ModeRelational:
		return []storage.Name{storage.NameMock, storage.NameRelational}
	default:
		return []storage.Name{storage.NameMock, storage.NameRelational, storage.NameHosted}
	}
}

// Policy is the static part of provider selection
type Policy struct {
	Mode    string
	Default storage.Name
}

// Validate checks the default provider is usable in the configured mode
func (p Policy) Validate() error {
	switch strings.ToLower(p.Mode) {
	case "", ModeDevelopment, ModeHosted, ModeRelational:
	default:
		return fmt.Errorf("unknown storage mode %q", p.Mode)
	}
	if !p.allows(p.Default) {
		return fmt.Errorf("default provider %q is not selectable in %q mode", p.Default, p.Mode)
	}
	return nil
}

func (p Policy) allows(n storage.Name) bool {
	for _, s := range Selectable(p.Mode) {
		if s == n {
			return true
		}
	}
	return false
}

// Machine holds one caller's selection state
type Machine struct {
	policy        Policy
	preference    storage.Name
	authenticated bool
}

// NewMachine restores a caller's state from its stored preference, which may be empty
func NewMachine(policy Policy, preference storage.Name, authenticated bool) *Machine {
	return &Machine{policy: policy, preference: preference, authenticated: authenticated}
}

func (m *Machine) Authenticated() bool { return m.authenticated }

// Preference is the selection to persist
func (m *Machine) Preference() storage.Name { return m.preference }

// Effective is the provider that serves the caller right now
func (m *Machine) Effective() storage.Name {
	if m.authenticated {
		return storage.NameHosted
	}
	n := m.preference
	if n == "" || !m.policy.allows(n) {
		n = m.policy.Default
	}
	if n == storage.NameHosted {
		return storage.NameMock
	}
	return n
}

// Select changes the preferred provider
func (m *Machine) Select(n storage.Name) error {
	if m.authenticated && n != storage.NameHosted {
		return fmt.Errorf("%w: cannot select %q", domain.ErrProviderLocked, n)
	}
	if !m.policy.allows(n) {
		return fmt.Errorf("%w: %q", domain.ErrProviderNotSelectable, n)
	}
	if n == storage.NameHosted && !m.authenticated {
		return domain.ErrAuthRequired
	}
	m.preference = n
	return nil
}

// SignIn switches the caller to the hosted backend
func (m *Machine) SignIn() error {
	if !m.policy.allows(storage.NameHosted) {
		return fmt.Errorf("%w: %q", domain.ErrProviderNotSelectable, storage.NameHosted)
	}
	m.authenticated = true
	m.preference = storage.NameHosted
	return nil
}

// SignOut leaves the hosted backend for demo data
func (m *Machine) SignOut() {
	wasHosted := m.Effective() == storage.NameHosted
	m.authenticated = false
	if wasHosted || m.preference == storage.NameHosted {
		m.preference = storage.NameMock
	}
}
