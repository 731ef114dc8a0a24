// Package svc wires the application's long-lived dependencies into a
// single context handed to handlers and logic.
package svc

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/memoirhq/memoir/internal/avatar"
	"github.com/memoirhq/memoir/internal/config"
	"github.com/memoirhq/memoir/internal/contribution"
	"github.com/memoirhq/memoir/internal/db"
	"github.com/memoirhq/memoir/internal/experience"
	"github.com/memoirhq/memoir/internal/logging"
	"github.com/memoirhq/memoir/internal/provider"
	"github.com/memoirhq/memoir/internal/run"
)

// livingRetention is how long an untouched living experience survives
// before the maintenance job prunes it.
const livingRetention = 30 * 24 * time.Hour

// ServiceContext carries the shared application state.
type ServiceContext struct {
	Config   config.Config
	Store    *db.Store
	Provider provider.Client
	Engine   *run.Engine
	Factory  *experience.Factory
	Avatars  *avatar.Manager

	cron *cron.Cron
}

// NewServiceContext builds the full dependency graph from configuration.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	store, err := db.NewSQLite(c.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	client := provider.NewOpenAIClient(c.Provider.APIKey, c.Provider.Model, c.Provider.BaseURL)
	engine := run.NewEngine(client, c.PollInterval(), c.RunTimeout())

	factory, err := experience.NewFactory(c.Experience.ScriptDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load experiences: %w", err)
	}
	if c.Experience.HotReload {
		if err := factory.Watch(); err != nil {
			logging.Warnf("[svc] experience hot reload unavailable: %v", err)
		}
	}

	svcCtx := &ServiceContext{
		Config:   c,
		Store:    store,
		Provider: client,
		Engine:   engine,
		Factory:  factory,
		Avatars:  avatar.NewManager(store, client, engine, factory, c.Provider.Model, c.Experience.DialogFallback),
	}

	svcCtx.cron = cron.New()
	if _, err := svcCtx.cron.AddFunc(c.Maintenance.Schedule, svcCtx.maintain); err != nil {
		store.Close()
		factory.Close()
		return nil, fmt.Errorf("schedule maintenance %q: %w", c.Maintenance.Schedule, err)
	}
	svcCtx.cron.Start()

	return svcCtx, nil
}

// maintain reverts stale requested contributions and prunes long-abandoned
// living experience records.
func (s *ServiceContext) maintain() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reverted, err := contribution.RevertStale(ctx, s.Store, s.Config.RequestTTL())
	if err != nil {
		logging.Errorf("[svc] maintenance: revert stale contributions: %v", err)
	} else if reverted > 0 {
		logging.Infof("[svc] maintenance: reverted %d stale contribution requests", reverted)
	}

	ids, err := s.Store.StaleIDs(ctx, "living", time.Now().Add(-livingRetention))
	if err != nil {
		logging.Errorf("[svc] maintenance: list stale experiences: %v", err)
		return
	}
	for _, id := range ids {
		if err := s.Store.Delete(ctx, "living", id); err != nil {
			logging.Errorf("[svc] maintenance: prune living %s: %v", id, err)
		}
	}
	if len(ids) > 0 {
		logging.Infof("[svc] maintenance: pruned %d abandoned experiences", len(ids))
	}
}

// Close releases the service context's resources.
func (s *ServiceContext) Close() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.Factory != nil {
		s.Factory.Close()
	}
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}
