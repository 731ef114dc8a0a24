package avatar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/memoirhq/memoir/internal/db"
	"github.com/memoirhq/memoir/internal/experience"
	"github.com/memoirhq/memoir/internal/provider"
	"github.com/memoirhq/memoir/internal/run"
)

// Manager hands out per-member avatars, creating member profiles on first
// contact. Avatars are cached so thread locks and registries are shared
// across requests for the same member.
type Manager struct {
	store    *db.Store
	client   provider.Client
	engine   *run.Engine
	factory  *experience.Factory
	registry *Registry
	fallback string

	mu      sync.Mutex
	avatars map[string]*Avatar
}

// NewManager creates the manager. model is the default assistant model and
// fallback the configured dialog fallback line.
func NewManager(store *db.Store, client provider.Client, engine *run.Engine, factory *experience.Factory, model, fallback string) *Manager {
	return &Manager{
		store:    store,
		client:   client,
		engine:   engine,
		factory:  factory,
		registry: NewRegistry(store, client, model),
		fallback: fallback,
		avatars:  make(map[string]*Avatar),
	}
}

// Avatar returns the orchestrator for a member, ensuring the member
// profile exists.
func (m *Manager) Avatar(ctx context.Context, memberID string) (*Avatar, error) {
	if memberID == "" {
		return nil, errors.New("member id is required")
	}
	if err := m.ensureMember(ctx, memberID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.avatars[memberID]; ok {
		return a, nil
	}
	a := newAvatar(memberID, m.store, m.client, m.engine, m.registry, m.factory, m.fallback)
	m.avatars[memberID] = a
	return a, nil
}

// ensureMember creates the member profile with the seeded biography
// outline when it does not exist yet.
func (m *Manager) ensureMember(ctx context.Context, memberID string) error {
	var member Member
	err := m.store.Get(ctx, membersCollection, memberID, &member)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return err
	}

	sections := make(map[string]string, len(defaultSections))
	for _, s := range defaultSections {
		sections[s] = ""
	}
	member = Member{
		ID:        memberID,
		Sections:  sections,
		CreatedAt: time.Now(),
	}
	return m.store.Put(ctx, membersCollection, memberID, memberID, &member)
}
