package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-travel/types"
)

type State int32

const (
	StateCold State = iota
	StateWarming
	StateWarm
	StateStale
)

func (s State) String() string {
	switch s {
	case StateCold:
		return "cold"
	case StateWarming:
		return "warming"
	case StateWarm:
		return "warm"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Snapshot is one complete refresh. A nil level means the country's
// advisory could not be read during that refresh. Snapshots are replaced
// whole and never modified.
type Snapshot struct {
	Levels      map[string]*int `json:"levels"`
	RefreshedAt time.Time       `json:"refreshed_at"`
}

func (s *Snapshot) Level(code string) *int {
	if s == nil {
		return nil
	}
	return s.Levels[code]
}

// CountryLister returns the full catalog.
type CountryLister func(ctx context.Context) ([]types.Country, error)

// LevelFunc resolves one country's safety level.
type LevelFunc func(ctx context.Context, code string) (int, error)

// Index is the per-country safety level of the whole catalog, refreshed
// in the background. At most one refresh runs at a time; the state CAS
// decides which trigger starts it.
type Index struct {
	ctx     context.Context
	cancel  context.CancelFunc
	list    CountryLister
	level   LevelFunc
	config  *types.CatalogConfig
	clock   types.Clock
	logger  types.Logger
	metrics types.MetricsManager

	state    atomic.Int32
	snapshot atomic.Pointer[Snapshot]
	wg       sync.WaitGroup

	// done is signalled after every finished refresh; tests wait on it.
	done chan struct{}
}

func NewIndex(ctx context.Context, config *types.CatalogConfig, list CountryLister, level LevelFunc, clock types.Clock, logger types.Logger, metrics types.MetricsManager) (*Index, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}
	if list == nil || level == nil {
		return nil, types.Errorf(types.ErrInvalidParameter, "catalog index needs a country lister and a level function")
	}

	indexCtx, cancel := context.WithCancel(ctx)

	idx := &Index{
		ctx:     indexCtx,
		cancel:  cancel,
		list:    list,
		level:   level,
		config:  config,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}, 1),
	}
	idx.state.Store(int32(StateCold))

	return idx, nil
}

// State reports the current state, first moving a Warm index past its TTL
// to Stale.
func (idx *Index) State() State {
	current := State(idx.state.Load())
	if current != StateWarm {
		return current
	}

	snap := idx.snapshot.Load()
	if snap != nil && idx.clock.Now().Sub(snap.RefreshedAt) >= idx.config.TTL {
		idx.state.CompareAndSwap(int32(StateWarm), int32(StateStale))
		return State(idx.state.Load())
	}
	return current
}

// Snapshot returns the latest complete refresh, or nil while Cold.
func (idx *Index) Snapshot() *Snapshot {
	return idx.snapshot.Load()
}

// Levels serves whatever the index holds and, when it is Cold or Stale,
// starts a background refresh. It never waits for the refresh.
func (idx *Index) Levels() *Snapshot {
	idx.Trigger()
	return idx.snapshot.Load()
}

// Trigger starts a refresh if the index is Cold or Stale. It reports
// whether this call started one.
func (idx *Index) Trigger() bool {
	idx.State()
	return idx.begin(StateCold) || idx.begin(StateStale)
}

// Refresh starts a refresh unless one is already running, whatever the
// freshness. Used by the schedule.
func (idx *Index) Refresh() bool {
	idx.State()
	return idx.begin(StateCold) || idx.begin(StateStale) || idx.begin(StateWarm)
}

func (idx *Index) begin(from State) bool {
	if idx.ctx.Err() != nil {
		return false
	}
	if !idx.state.CompareAndSwap(int32(from), int32(StateWarming)) {
		return false
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.refresh(from)
	}()

	return true
}

func (idx *Index) refresh(previous State) {
	start := time.Now()
	snap, err := idx.build(idx.ctx)
	if err != nil {
		// Keep serving what we had; the next trigger retries.
		fallback := StateCold
		if idx.snapshot.Load() != nil {
			fallback = StateStale
		}
		idx.state.CompareAndSwap(int32(StateWarming), int32(fallback))

		idx.logger.Warn("Catalog refresh failed",
			zap.String("previous_state", previous.String()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		idx.record("failure", start, 0)
		idx.signal()
		return
	}

	idx.snapshot.Store(snap)
	idx.state.CompareAndSwap(int32(StateWarming), int32(StateWarm))

	idx.logger.Info("Catalog refreshed",
		zap.Int("countries", len(snap.Levels)),
		zap.Duration("duration", time.Since(start)))
	idx.record("success", start, len(snap.Levels))
	idx.signal()
}

func (idx *Index) build(ctx context.Context) (*Snapshot, error) {
	countries, err := idx.list(ctx)
	if err != nil {
		return nil, types.WrapError(err, "list countries")
	}

	levels := make([]*int, len(countries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers())

	for i, country := range countries {
		code := country.Code
		g.Go(func() error {
			level, err := idx.level(gctx, code)
			if err != nil {
				idx.logger.Debug("Country level unavailable",
					zap.String("country", code),
					zap.Error(err))
				return nil
			}
			levels[i] = &level
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Levels:      make(map[string]*int, len(countries)),
		RefreshedAt: idx.clock.Now(),
	}
	for i, country := range countries {
		snap.Levels[country.Code] = levels[i]
	}

	return snap, nil
}

func (idx *Index) workers() int {
	if idx.config.Workers > 0 {
		return idx.config.Workers
	}
	return 1
}

func (idx *Index) signal() {
	select {
	case idx.done <- struct{}{}:
	default:
	}
}

func (idx *Index) record(result string, start time.Time, countries int) {
	if idx.metrics == nil {
		return
	}

	idx.metrics.Counter("catalog_refreshes_total", map[string]string{"result": result}).Inc()
	idx.metrics.Histogram("catalog_refresh_duration_seconds",
		[]float64{0.5, 1, 5, 15, 30, 60, 120},
		map[string]string{"result": result},
	).ObserveDuration(start)

	if result == "success" {
		idx.metrics.Gauge("catalog_countries", nil).Set(float64(countries))
	}
}

func (idx *Index) Start() error {
	if idx.config.WarmOnStart {
		idx.Trigger()
	}

	idx.logger.Info("Catalog index started",
		zap.Duration("ttl", idx.config.TTL),
		zap.Int("workers", idx.workers()),
		zap.Bool("warm_on_start", idx.config.WarmOnStart))

	return nil
}

// Stop cancels a running refresh and waits for it.
func (idx *Index) Stop() error {
	idx.cancel()
	idx.wg.Wait()

	idx.logger.Info("Catalog index stopped")
	return nil
}

func (idx *Index) IsRunning() bool {
	return idx.ctx.Err() == nil
}
