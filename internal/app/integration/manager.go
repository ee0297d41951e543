package integration

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/ytlounge/internal/app/entity"
	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/app/metadata"
	"github.com/osa030/ytlounge/internal/app/notification"
	"github.com/osa030/ytlounge/internal/app/supervisor"
	"github.com/osa030/ytlounge/internal/infra/entrystore"
	"github.com/osa030/ytlounge/internal/infra/metrics"
)

// EntryStore is the subset of the entry store used by the manager.
type EntryStore interface {
	Load() ([]entrystore.Entry, error)
	Watch(ctx context.Context, debounce time.Duration, onChange func()) error
}

// Config holds manager settings.
type Config struct {
	DefaultDriver    string
	DefaultAPIKey    string // Used for entries without their own key
	Supervisor       supervisor.Config
	RetryFailedAfter time.Duration
	WatchDebounce    time.Duration
	Clock            supervisor.Clock
}

// player is a running entry. mu guards entry and entity.
type player struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	entry  entrystore.Entry
	entity *entity.Entity // nil until setup succeeds
}

func (p *player) get() *entity.Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entity
}

func (p *player) current() entrystore.Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entry
}

// update stores e and returns the entity, if setup has finished.
func (p *player) update(e entrystore.Entry) *entity.Entity {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entry = e
	return p.entity
}

// attach stores the entity and returns the entry as it is now.
func (p *player) attach(ent *entity.Entity) entrystore.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entity = ent
	return p.entry
}

// Manager runs a player for every stored entry and keeps them in sync with
// the entry file.
type Manager struct {
	store    EntryStore
	drivers  DriverOpener
	metadata metadata.Factory
	notifier *notification.Manager
	config   Config

	mu      sync.RWMutex
	players map[string]*player // by entry id
	group   *errgroup.Group
	ctx     context.Context
}

// NewManager creates a manager. metadataFactory and notifier may be nil.
func NewManager(store EntryStore, drivers DriverOpener, metadataFactory metadata.Factory, notifier *notification.Manager, cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = supervisor.RealClock()
	}
	return &Manager{
		store:    store,
		drivers:  drivers,
		metadata: metadataFactory,
		notifier: notifier,
		config:   cfg,
		players:  make(map[string]*player),
	}
}

// Run starts all entries and follows entry file changes until ctx is done.
// It returns after every player has stopped.
func (m *Manager) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	m.mu.Lock()
	m.group = g
	m.ctx = gctx
	m.mu.Unlock()

	if err := m.Reconcile(); err != nil {
		return err
	}

	g.Go(func() error {
		return m.store.Watch(gctx, m.config.WatchDebounce, func() {
			if err := m.Reconcile(); err != nil {
				zlog.Error().Err(err).Msg("integration: failed to reload entries")
			}
		})
	})

	err := g.Wait()

	m.mu.Lock()
	m.group = nil
	m.players = make(map[string]*player)
	m.mu.Unlock()

	zlog.Info().Msg("integration: all players stopped")
	return err
}

// Reconcile starts new entries, stops removed ones and restarts changed ones.
func (m *Manager) Reconcile() error {
	entries, err := m.store.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load entries")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.group == nil || m.ctx.Err() != nil {
		return nil
	}

	wanted := make(map[string]entrystore.Entry, len(entries))
	for _, e := range entries {
		wanted[e.ID] = e
	}

	for id, p := range m.players {
		e, ok := wanted[id]
		cur := p.current()
		switch {
		case !ok:
			zlog.Info().Msgf("integration: entry removed: id=%s", id)
			m.stopLocked(id, p)
		case e.Driver != cur.Driver || !reflect.DeepEqual(e.Auth, cur.Auth):
			zlog.Info().Msgf("integration: entry changed, restarting: id=%s", id)
			m.stopLocked(id, p)
		case e.GoogleAPIKey != cur.GoogleAPIKey || e.Title != cur.Title:
			ent := p.update(e)
			if ent == nil {
				// Still in setup: runPlayer applies the entry once the entity exists.
				continue
			}
			if e.Title != cur.Title {
				ent.SetTitle(e.Title)
			}
			if key := m.apiKey(e); e.GoogleAPIKey != cur.GoogleAPIKey && key != "" {
				go m.attachMetadata(m.ctx, ent, key)
			}
		}
	}

	for id, e := range wanted {
		if _, ok := m.players[id]; !ok {
			m.startLocked(e)
		}
	}
	return nil
}

func (m *Manager) startLocked(e entrystore.Entry) {
	ctx, cancel := context.WithCancel(m.ctx)
	p := &player{entry: e, cancel: cancel, done: make(chan struct{})}
	m.players[e.ID] = p

	m.group.Go(func() error {
		defer close(p.done)
		m.runPlayer(ctx, p)
		return nil
	})
}

func (m *Manager) stopLocked(id string, p *player) {
	p.cancel()
	<-p.done
	delete(m.players, id)
}

// runPlayer sets up the entry, retrying until it succeeds, then runs its entity.
func (m *Manager) runPlayer(ctx context.Context, p *player) {
	entry := p.current()
	driverName := entry.Driver
	if driverName == "" {
		driverName = m.config.DefaultDriver
	}

	driver, err := m.drivers(driverName)
	if err != nil {
		zlog.Error().Err(err).Msgf("integration: no driver for entry: id=%s driver=%s", entry.ID, driverName)
		return
	}

	var client lounge.Client
	for {
		client, err = Setup(ctx, driver, entry)
		if err == nil {
			break
		}
		if errors.Is(err, ErrNotPaired) {
			zlog.Error().Err(err).Msgf("integration: entry needs pairing again: id=%s title=%q", entry.ID, entry.Title)
			return
		}
		if ctx.Err() != nil {
			return
		}
		zlog.Warn().Err(err).Msgf("integration: setup failed, retrying in %v: id=%s", m.retryInterval(), entry.ID)
		if err := supervisor.Sleep(ctx, m.config.Clock, m.retryInterval()); err != nil {
			return
		}
	}
	defer func() {
		if err := Unload(client); err != nil {
			zlog.Warn().Err(err).Msgf("integration: unload failed: id=%s", entry.ID)
		}
	}()

	opts := []entity.Option{
		entity.WithClock(m.config.Clock),
		entity.WithSupervisorConfig(m.config.Supervisor),
		entity.WithResolver(metadata.NewResolver(
			metadata.WithRetryFailedAfter(m.config.RetryFailedAfter),
			metadata.WithNow(m.config.Clock.Now),
		)),
	}
	if m.notifier != nil {
		opts = append(opts, entity.WithObserver(m.notifier.Broadcast))
	}
	ent := entity.New(entry.Title, client, opts...)
	entry = p.attach(ent)
	if entry.Title != ent.Title() {
		ent.SetTitle(entry.Title)
	}

	screenID := ent.UniqueID()
	metrics.ActivePlayers.Inc()
	defer func() {
		metrics.ActivePlayers.Dec()
		metrics.ClearScreen(screenID, supervisor.PhaseNames())
	}()

	if key := m.apiKey(entry); key != "" {
		go m.attachMetadata(ctx, ent, key)
	}

	zlog.Info().Msgf("integration: player started: id=%s screen=%s title=%q", entry.ID, screenID, entry.Title)
	if err := ent.Run(ctx); err != nil {
		zlog.Error().Err(err).Msgf("integration: player failed: id=%s", entry.ID)
	}
	zlog.Info().Msgf("integration: player stopped: id=%s screen=%s", entry.ID, screenID)
}

func (m *Manager) retryInterval() time.Duration {
	if d := m.config.Supervisor.ErrorRetryInterval; d > 0 {
		return d
	}
	return supervisor.DefaultErrorRetryInterval
}

func (m *Manager) apiKey(e entrystore.Entry) string {
	if e.GoogleAPIKey != "" {
		return e.GoogleAPIKey
	}
	return m.config.DefaultAPIKey
}

// attachMetadata creates the metadata service and attaches it to ent.
func (m *Manager) attachMetadata(ctx context.Context, ent *entity.Entity, apiKey string) {
	if m.metadata == nil {
		return
	}
	svc, err := m.metadata(ctx, apiKey)
	if err != nil {
		zlog.Warn().Err(err).Msgf("integration: metadata service unavailable: screen=%s", ent.UniqueID())
		return
	}
	ent.SetMetadataService(ctx, svc)
	zlog.Debug().Msgf("integration: metadata service attached: screen=%s", ent.UniqueID())
}

// Players returns the running players sorted by name.
func (m *Manager) Players() []*entity.Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*entity.Entity, 0, len(m.players))
	for _, p := range m.players {
		if e := p.get(); e != nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title() != out[j].Title() {
			return out[i].Title() < out[j].Title()
		}
		return out[i].UniqueID() < out[j].UniqueID()
	})
	return out
}

// Player returns the running player with the given screen id or entry id.
func (m *Manager) Player(id string) (*entity.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.players[id]; ok {
		if e := p.get(); e != nil {
			return e, nil
		}
	}
	for _, p := range m.players {
		if e := p.get(); e != nil && e.UniqueID() == id {
			return e, nil
		}
	}
	return nil, errors.Wrapf(ErrPlayerNotFound, "id=%s", id)
}
