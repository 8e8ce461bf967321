package session

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
	"github.com/cuongbtq/job-tracker/internal/api/storage/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSelectable(t *testing.T) {
	assert.Equal(t, []storage.Name{storage.NameMock, storage.NameHosted}, Selectable("hosted"))
	assert.Equal(t, []storage.Name{storage.NameMock, storage.NameRelational}, Selectable("relational"))
	assert.Len(t, Selectable(""), 3)
	assert.Len(t, Selectable("development"), 3)
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{name: "development relational", policy: Policy{Default: storage.NameRelational}},
		{name: "hosted mode mock", policy: Policy{Mode: ModeHosted, Default: storage.NameMock}},
		{name: "hosted mode relational", policy: Policy{Mode: ModeHosted, Default: storage.NameRelational}, wantErr: true},
		{name: "relational mode hosted", policy: Policy{Mode: ModeRelational, Default: storage.NameHosted}, wantErr: true},
		{name: "unknown mode", policy: Policy{Mode: "cloud", Default: storage.NameMock}, wantErr: true},
		{name: "missing default", policy: Policy{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMachine_Effective(t *testing.T) {
	dev := Policy{Mode: ModeDevelopment, Default: storage.NameRelational}
	tests := []struct {
		name          string
		policy        Policy
		preference    storage.Name
		authenticated bool
		want          storage.Name
	}{
		{name: "initial state uses the default", policy: dev, want: storage.NameRelational},
		{name: "preference wins over default", policy: dev, preference: storage.NameMock, want: storage.NameMock},
		{name: "signed in is forced to hosted", policy: dev, preference: storage.NameMock, authenticated: true, want: storage.NameHosted},
		{name: "anonymous hosted preference falls back to mock", policy: dev, preference: storage.NameHosted, want: storage.NameMock},
		{
			name:       "preference outside the mode uses the default",
			policy:     Policy{Mode: ModeHosted, Default: storage.NameMock},
			preference: storage.NameRelational,
			want:       storage.NameMock,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(tt.policy, tt.preference, tt.authenticated)
			assert.Equal(t, tt.want, m.Effective())
		})
	}
}

func TestMachine_Transitions(t *testing.T) {
	dev := Policy{Default: storage.NameMock}

	t.Run("select while anonymous", func(t *testing.T) {
		m := NewMachine(dev, "", false)
		require.NoError(t, m.Select(storage.NameRelational))
		assert.Equal(t, storage.NameRelational, m.Effective())
	})

	t.Run("hosted needs sign in", func(t *testing.T) {
		m := NewMachine(dev, "", false)
		assert.ErrorIs(t, m.Select(storage.NameHosted), domain.ErrAuthRequired)
		assert.Equal(t, storage.NameMock, m.Effective())
	})

	t.Run("locked while signed in", func(t *testing.T) {
		m := NewMachine(dev, storage.NameHosted, true)
		assert.ErrorIs(t, m.Select(storage.NameMock), domain.ErrProviderLocked)
		assert.ErrorIs(t, m.Select(storage.NameRelational), domain.ErrProviderLocked)
		assert.NoError(t, m.Select(storage.NameHosted))
		assert.Equal(t, storage.NameHosted, m.Effective())
	})

	t.Run("not selectable in mode", func(t *testing.T) {
		m := NewMachine(Policy{Mode: ModeHosted, Default: storage.NameMock}, "", false)
		assert.ErrorIs(t, m.Select(storage.NameRelational), domain.ErrProviderNotSelectable)
	})

	t.Run("sign in overrides the selection", func(t *testing.T) {
		m := NewMachine(dev, storage.NameRelational, false)
		require.NoError(t, m.SignIn())
		assert.True(t, m.Authenticated())
		assert.Equal(t, storage.NameHosted, m.Effective())
		assert.Equal(t, storage.NameHosted, m.Preference())
	})

	t.Run("sign in without hosted in mode", func(t *testing.T) {
		m := NewMachine(Policy{Mode: ModeRelational, Default: storage.NameMock}, "", false)
		assert.ErrorIs(t, m.SignIn(), domain.ErrProviderNotSelectable)
		assert.False(t, m.Authenticated())
	})

	t.Run("sign out from hosted goes to mock", func(t *testing.T) {
		m := NewMachine(dev, storage.NameHosted, true)
		m.SignOut()
		assert.False(t, m.Authenticated())
		assert.Equal(t, storage.NameMock, m.Effective())
		assert.Equal(t, storage.NameMock, m.Preference())
	})

	t.Run("sign out while anonymous keeps the selection", func(t *testing.T) {
		m := NewMachine(dev, storage.NameRelational, false)
		m.SignOut()
		assert.Equal(t, storage.NameRelational, m.Effective())
	})
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "preferences.json")

	s := NewFileStore(path)
	name, err := s.Load(ctx, "browser-1")
	require.NoError(t, err)
	assert.Empty(t, name, "missing file means no preference")

	require.NoError(t, s.Save(ctx, "browser-1", storage.NameRelational))
	require.NoError(t, s.Save(ctx, "browser-2", storage.NameMock))

	// a new store over the same file sees the saved values
	reopened := NewFileStore(path)
	name, err = reopened.Load(ctx, "browser-1")
	require.NoError(t, err)
	assert.Equal(t, storage.NameRelational, name)
	name, err = reopened.Load(ctx, "browser-2")
	require.NoError(t, err)
	assert.Equal(t, storage.NameMock, name)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background(), "x")
	assert.Error(t, err)
}

func newRegistry(names ...storage.Name) *storage.Registry {
	r := storage.NewRegistry()
	for _, n := range names {
		r.Register(n, storage.Shared(mock.New(discardLogger())))
	}
	return r
}

func TestManager_Flow(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(storage.NameMock, storage.NameRelational, storage.NameHosted)
	m := NewManager(Policy{Default: storage.NameMock}, NewMemoryStore(), registry, discardLogger())

	var changes []Change
	m.OnChange(func(_ context.Context, c Change) { changes = append(changes, c) })

	anon := Caller{Client: "c1"}
	user := Caller{Client: "c1", OwnerID: "user-1"}

	view, err := m.State(ctx, anon)
	require.NoError(t, err)
	assert.Equal(t, storage.NameMock, view.Provider)
	assert.Equal(t, []storage.Name{storage.NameMock, storage.NameRelational, storage.NameHosted}, view.Selectable)

	view, err = m.Select(ctx, anon, storage.NameRelational)
	require.NoError(t, err)
	assert.Equal(t, storage.NameRelational, view.Provider)

	view, err = m.State(ctx, anon)
	require.NoError(t, err)
	assert.Equal(t, storage.NameRelational, view.Provider, "selection is persisted")

	_, err = m.SignIn(ctx, anon)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	view, err = m.SignIn(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, storage.NameHosted, view.Provider)
	assert.True(t, view.Authenticated)

	_, err = m.Select(ctx, user, storage.NameMock)
	assert.ErrorIs(t, err, domain.ErrProviderLocked)

	view, err = m.SignOut(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, storage.NameMock, view.Provider)

	view, err = m.State(ctx, anon)
	require.NoError(t, err)
	assert.Equal(t, storage.NameMock, view.Provider)

	require.Len(t, changes, 3)
	assert.Equal(t, Change{Client: "c1", From: storage.NameMock, To: storage.NameRelational, Reason: ReasonSelect}, changes[0])
	assert.Equal(t, Change{Client: "c1", OwnerID: "user-1", From: storage.NameRelational, To: storage.NameHosted, Authenticated: true, Reason: ReasonSignIn}, changes[1])
	assert.Equal(t, storage.NameHosted, changes[2].From)
	assert.Equal(t, storage.NameMock, changes[2].To)
	assert.Equal(t, ReasonSignOut, changes[2].Reason)
}

func TestManager_SignOutWithoutToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "c", storage.NameHosted))
	m := NewManager(Policy{Default: storage.NameRelational}, store, newRegistry(storage.NameMock, storage.NameRelational, storage.NameHosted), discardLogger())

	var changes []Change
	m.OnChange(func(_ context.Context, c Change) { changes = append(changes, c) })

	view, err := m.SignOut(ctx, Caller{Client: "c"})
	require.NoError(t, err)
	assert.Equal(t, storage.NameMock, view.Provider)
	assert.Equal(t, storage.NameMock, view.Preference)
	require.Len(t, changes, 1)
	assert.Equal(t, storage.NameHosted, changes[0].From)
}

func TestManager_SelectUnregistered(t *testing.T) {
	registry := newRegistry(storage.NameMock)
	m := NewManager(Policy{Default: storage.NameMock}, NewMemoryStore(), registry, discardLogger())

	_, err := m.Select(context.Background(), Caller{Client: "c"}, storage.NameRelational)
	assert.ErrorIs(t, err, domain.ErrProviderNotSelectable)

	view, err := m.State(context.Background(), Caller{Client: "c"})
	require.NoError(t, err)
	assert.Equal(t, []storage.Name{storage.NameMock}, view.Selectable)
}

func TestManager_Resolve(t *testing.T) {
	ctx := context.Background()
	registry := storage.NewRegistry()
	relational := mock.New(discardLogger())
	registry.Register(storage.NameMock, storage.Shared(mock.New(discardLogger())))
	registry.Register(storage.NameRelational, storage.Shared(relational))

	var owners []string
	registry.Register(storage.NameHosted, func(_ context.Context, owner string) (storage.Provider, error) {
		owners = append(owners, owner)
		return mock.New(discardLogger()), nil
	})

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "c", storage.NameRelational))
	m := NewManager(Policy{Default: storage.NameMock}, store, registry, discardLogger())

	p, err := m.Resolve(ctx, Caller{Client: "c"})
	require.NoError(t, err)
	assert.Same(t, relational, p)

	_, err = m.Resolve(ctx, Caller{Client: "c", OwnerID: "user-7"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-7"}, owners, "signed-in callers are served by hosted")
}
