package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cory-johannsen/skillforge/internal/clock"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
)

// DefaultSaveWorkers bounds SaveAll parallelism when none is configured.
const DefaultSaveWorkers = 4

// entry wraps a cached record. An entry whose unload save failed stays cached
// as offline until a later save succeeds, then is evicted.
type entry struct {
	rec *player.Record

	// saving serializes writes of rec so an older snapshot never lands after
	// a newer one.
	saving sync.Mutex

	mu      sync.Mutex
	offline bool
	evicted bool
}

type loadResult struct {
	entry   *entry
	created bool
	claimed atomic.Bool
}

// SaveReport counts the outcome of a SaveAll pass.
type SaveReport struct {
	Saved   int
	Clean   int
	Failed  int
	Evicted int
}

// Cache is the authoritative in-memory store of online players' records.
//
// The backing map is lock-free for reads and inserts; concurrent mutation of
// one record is serialized by the record itself.
type Cache struct {
	gw      Gateway
	clock   clock.Clock
	deriver *stats.Deriver
	logger  *zap.Logger
	workers int

	records sync.Map // player.Identity → *entry
	loads   singleflight.Group
}

// NewCache creates an empty Cache. workers <= 0 selects DefaultSaveWorkers.
//
// Precondition: gw, clk, deriver and logger must be non-nil.
func NewCache(gw Gateway, clk clock.Clock, deriver *stats.Deriver, logger *zap.Logger, workers int) *Cache {
	if workers <= 0 {
		workers = DefaultSaveWorkers
	}
	return &Cache{gw: gw, clock: clk, deriver: deriver, logger: logger.Named("session"), workers: workers}
}

// Get returns the record for an online player. A record kept only because
// its unload save failed is not returned. It never touches persistence.
func (c *Cache) Get(id player.Identity) (*player.Record, bool) {
	e, ok := c.lookup(id, false)
	if !ok {
		return nil, false
	}
	return e.rec, true
}

// lookup returns the cached entry for id. rejoin marks an offline entry as
// online again so a pending eviction is cancelled; without it an offline
// entry is not found.
func (c *Cache) lookup(id player.Identity, rejoin bool) (*entry, bool) {
	v, ok := c.records.Load(id)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return nil, false
	}
	if rejoin {
		e.offline = false
	} else if e.offline {
		return nil, false
	}
	return e, true
}

// LoadOrCreate returns the cached record for id, loading it from the gateway
// or creating a default one named defaultName when none is persisted. created
// is true for exactly one caller when a new record was made.
//
// Precondition: ctx must be non-nil.
// Postcondition: on success the record is cached and its derived stats are
// current. A gateway failure other than ErrNotFound is returned and nothing
// is cached, so a transient outage never shadows a persisted record.
func (c *Cache) LoadOrCreate(ctx context.Context, id player.Identity, defaultName string) (*player.Record, bool, error) {
	if e, ok := c.lookup(id, true); ok {
		return e.rec, false, nil
	}
	v, err, _ := c.loads.Do(id.String(), func() (any, error) {
		if e, ok := c.lookup(id, true); ok {
			return &loadResult{entry: e}, nil
		}
		rec, created, err := c.load(ctx, id, defaultName)
		if err != nil {
			return nil, err
		}
		actual, _ := c.records.LoadOrStore(id, &entry{rec: rec})
		return &loadResult{entry: actual.(*entry), created: created}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(*loadResult)
	created := res.created && res.claimed.CompareAndSwap(false, true)
	return res.entry.rec, created, nil
}

func (c *Cache) load(ctx context.Context, id player.Identity, defaultName string) (*player.Record, bool, error) {
	now := c.clock.Now()
	doc, err := c.gw.Load(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		rec := player.New(id, defaultName, now)
		rec.Update(func(s *player.State) { c.deriver.Recompute(s) })
		c.logger.Info("created player record", zap.Stringer("player", id))
		return rec, true, nil
	case err != nil:
		c.logger.Error("loading player record", zap.Stringer("player", id), zap.Error(err))
		return nil, false, fmt.Errorf("loading player %s: %w", id, err)
	}

	rec, issues := player.FromDocument(doc, now)
	for _, issue := range issues {
		c.logger.Warn("sanitized persisted player data", zap.Stringer("player", id), zap.String("issue", issue))
	}
	rec.UpdateIf(func(s *player.State) bool {
		before := derived(s)
		c.deriver.Recompute(s)
		return derived(s) != before
	})
	return rec, false, nil
}

type derivedFields struct {
	stats                      player.Stats
	maxHP, maxMana, maxStamina float64
	hp, mana, stamina          float64
}

func derived(s *player.State) derivedFields {
	return derivedFields{s.Stats, s.MaxHP, s.MaxMana, s.MaxStamina, s.HP, s.Mana, s.Stamina}
}

// GetOrLoad returns the cached record, loading or creating it when absent.
// A created record is named after its identity.
func (c *Cache) GetOrLoad(ctx context.Context, id player.Identity) (*player.Record, error) {
	if rec, ok := c.Get(id); ok {
		return rec, nil
	}
	rec, _, err := c.LoadOrCreate(ctx, id, id.String())
	return rec, err
}

// Save persists the record for id if it is dirty. An identity that is not
// cached is a no-op.
//
// Postcondition: on success the record is clean unless it was mutated while
// the write was in flight; on failure it stays dirty.
func (c *Cache) Save(ctx context.Context, id player.Identity) error {
	v, ok := c.records.Load(id)
	if !ok {
		return nil
	}
	_, err := c.save(ctx, v.(*entry))
	return err
}

func (c *Cache) save(ctx context.Context, e *entry) (bool, error) {
	e.saving.Lock()
	defer e.saving.Unlock()

	rec := e.rec
	if !rec.Dirty() {
		return false, nil
	}
	doc, version := rec.Document()
	if err := c.gw.Save(ctx, doc); err != nil {
		c.logger.Error("saving player record", zap.Stringer("player", rec.ID()), zap.Error(err))
		return false, fmt.Errorf("saving player %s: %w", rec.ID(), err)
	}
	rec.MarkSaved(version)
	return true, nil
}

// SaveAll saves every cached record with bounded parallelism. A failing record
// is logged and counted; it never aborts the batch. Records left offline by a
// failed Unload are evicted once saved.
func (c *Cache) SaveAll(ctx context.Context) SaveReport {
	var saved, clean, failed, evicted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	c.records.Range(func(key, value any) bool {
		id, e := key.(player.Identity), value.(*entry)
		g.Go(func() error {
			wrote, err := c.save(gctx, e)
			switch {
			case err != nil:
				failed.Add(1)
				return nil
			case wrote:
				saved.Add(1)
			default:
				clean.Add(1)
			}
			if c.evictIfOffline(id, e) {
				evicted.Add(1)
			}
			return nil
		})
		return true
	})
	_ = g.Wait()

	report := SaveReport{
		Saved:   int(saved.Load()),
		Clean:   int(clean.Load()),
		Failed:  int(failed.Load()),
		Evicted: int(evicted.Load()),
	}
	if report.Failed > 0 {
		c.logger.Warn("save pass completed with failures",
			zap.Int("saved", report.Saved),
			zap.Int("failed", report.Failed),
		)
	}
	return report
}

func (c *Cache) evictIfOffline(id player.Identity, e *entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.offline || e.evicted || e.rec.Dirty() {
		return false
	}
	e.evicted = true
	c.records.CompareAndDelete(id, e)
	return true
}

// Unload saves the record for id and removes it from the cache. If the save
// fails the record stays cached as offline so the next SaveAll retries it,
// and the error is returned.
func (c *Cache) Unload(ctx context.Context, id player.Identity) error {
	v, ok := c.records.Load(id)
	if !ok {
		return nil
	}
	e := v.(*entry)
	e.mu.Lock()
	e.offline = true
	e.mu.Unlock()

	if _, err := c.save(ctx, e); err != nil {
		return err
	}
	c.evictIfOffline(id, e)
	return nil
}

// Len returns the number of cached records, including offline ones awaiting
// a successful save.
func (c *Cache) Len() int {
	n := 0
	c.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Online returns the number of cached records that are not waiting on an
// unload retry.
func (c *Cache) Online() int {
	n := 0
	c.records.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if !e.offline && !e.evicted {
			n++
		}
		e.mu.Unlock()
		return true
	})
	return n
}

// IDs returns the identities currently cached.
func (c *Cache) IDs() []player.Identity {
	var out []player.Identity
	c.records.Range(func(key, _ any) bool {
		out = append(out, key.(player.Identity))
		return true
	})
	return out
}
