// Package profiler provides the session controller which owns the settings
// and the current result set of an image load profiling session.
package profiler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dkorittki/imgprof/pkg/loader"
	"github.com/dkorittki/imgprof/pkg/measurement"
	"github.com/dkorittki/imgprof/pkg/profiler/databackend"
	"github.com/dkorittki/imgprof/pkg/settings"
	"github.com/dkorittki/imgprof/pkg/stats"
	"github.com/dkorittki/imgprof/pkg/trigger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OutcomeBufferSize is the capacity of the channel between loads and the event loop.
const OutcomeBufferSize = 1000

// ErrSuperseded indicates that a newer submission replaced the awaited result set.
var ErrSuperseded = errors.New("result set superseded by a newer submission")

// Option configures a Service.
type Option func(*Service)

// WithDataBackend stores every applied outcome in db.
func WithDataBackend(db databackend.DataBackend) Option {
	return func(s *Service) {
		s.db = db
	}
}

// WithOnChange registers fn to be called with a fresh View after every state change.
// Calls never overlap and follow the order of the changes. fn must not call Submit.
func WithOnChange(fn func(View)) Option {
	return func(s *Service) {
		s.onChange = fn
	}
}

// WithBuckets sets the maximum number of histogram buckets.
func WithBuckets(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.buckets = n
		}
	}
}

// WithClock replaces the clock providing submission timestamps.
func WithClock(c loader.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// Service is the single owner of the session state. Settings change through
// the Set* handlers, submissions through Submit, and settled loads through
// the event loop started by Run.
type Service struct {
	store    settings.Store
	loader   loader.Loader
	trigger  *trigger.Trigger
	agg      *measurement.Aggregator
	outcomes chan measurement.Outcome
	buckets  int
	clock    loader.Clock
	db       databackend.DataBackend
	onChange func(View)

	mu        sync.RWMutex
	settings  settings.Settings
	loaderCtx context.Context
	ready     chan struct{}
	done      chan struct{}

	// published is the result set as last reported to listeners; every
	// applied outcome in it has been stored already.
	published measurement.ResultSet
	changedCh chan struct{}
	publishMu sync.Mutex
}

// New returns a Service initialized from the settings in store.
func New(store settings.Store, l loader.Loader, opts ...Option) *Service {
	s := &Service{
		store:    store,
		loader:   l,
		trigger:  trigger.New(l),
		agg:      measurement.NewAggregator(),
		outcomes: make(chan measurement.Outcome, OutcomeBufferSize),
		buckets:  stats.DefaultBuckets,
		clock:    loader.SystemClock{},
		settings: settings.Load(store),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.published = s.agg.Snapshot()
	s.changedCh = make(chan struct{})

	return s
}

// Settings returns the current settings.
func (s *Service) Settings() settings.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetMode changes and persists the mode.
func (s *Service) SetMode(m settings.Mode) error {
	return s.set(settings.KeyMode, m.String())
}

// SetURLInput changes and persists the raw URL list.
func (s *Service) SetURLInput(text string) error {
	return s.set(settings.KeyURLInput, text)
}

// SetComparisonBaseURL changes and persists the comparison base URL.
func (s *Service) SetComparisonBaseURL(base string) error {
	return s.set(settings.KeyComparisonBaseURL, base)
}

// SetCacheBust changes and persists the cache-busting flag.
func (s *Service) SetCacheBust(on bool) error {
	return s.set(settings.KeyCacheBust, strconv.FormatBool(on))
}

func (s *Service) set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.settings.With(key, value)
	if err != nil {
		return err
	}

	if err := s.store.Set(settings.Namespace+key, next.Value(key)); err != nil {
		return errors.Wrapf(err, "cannot persist %s", key)
	}

	s.settings = next

	log.Debug().
		Str("component", "profiler_service").
		Str("key", key).
		Msg("setting changed")

	return nil
}

// Run prepares the loader and applies settled outcomes until ctx is canceled.
// It must be called exactly once. Loads of earlier submissions keep running
// in the background; their outcomes are discarded by generation.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)

	loaderCtx := s.loader.WithContext(ctx)

	s.mu.Lock()
	s.loaderCtx = loaderCtx
	close(s.ready)
	s.mu.Unlock()

	log.Info().Str("component", "profiler_service").Msg("session started")

	for {
		select {
		case o := <-s.outcomes:
			s.settle(o)
		case <-ctx.Done():
			log.Info().Str("component", "profiler_service").Msg("session stopped")
			return nil
		}
	}
}

// Submit replaces the current result set with one item per line of the
// stored URL input and starts loading all of them. It returns the
// generation token of the new result set.
func (s *Service) Submit(ctx context.Context) (uint64, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	st := s.Settings()
	urls := trigger.ParseURLList(st.URLInput)
	if len(urls) == 0 {
		return 0, trigger.ErrNoURLs
	}

	now := s.clock.Now()
	items := trigger.Build(urls, trigger.Options{
		CacheBust:      st.CacheBust,
		Timestamp:      now.UnixNano() / int64(time.Millisecond),
		Compare:        st.Mode == settings.ModeComparison,
		ComparisonBase: st.ComparisonBaseURL,
	})

	gen := s.agg.Replace(items, now)

	log.Info().
		Str("component", "profiler_service").
		Uint64("generation", gen).
		Int("items", len(items)).
		Str("mode", st.Mode.String()).
		Bool("cache_bust", st.CacheBust).
		Msg("submitted url list")

	s.publish()

	s.mu.RLock()
	loaderCtx := s.loaderCtx
	s.mu.RUnlock()

	s.trigger.Dispatch(loaderCtx, gen, items, func(o measurement.Outcome) {
		select {
		case s.outcomes <- o:
		case <-loaderCtx.Done():
		}
	})

	return gen, nil
}

// Done is closed once Run returned. No outcome is stored afterwards.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// View returns the derived state of the current result set.
func (s *Service) View() View {
	s.mu.RLock()
	set := s.published
	s.mu.RUnlock()

	return BuildView(set, s.buckets)
}

// Wait blocks until every load of generation gen settled, ctx ends, or a
// newer submission superseded gen. It always returns the latest view. Every
// outcome the view contains has been passed to the DataBackend.
func (s *Service) Wait(ctx context.Context, gen uint64) (View, error) {
	for {
		s.mu.RLock()
		ch := s.changedCh
		set := s.published
		s.mu.RUnlock()

		view := BuildView(set, s.buckets)

		if set.Generation != gen {
			return view, ErrSuperseded
		}
		if set.Complete() {
			return view, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return view, ctx.Err()
		}
	}
}

// settle applies o, stores it and publishes the new state.
func (s *Service) settle(o measurement.Outcome) {
	if !s.agg.Apply(o) {
		return
	}

	if s.db != nil {
		set := s.agg.Snapshot()
		url := ""
		if o.Index < len(set.Items) {
			url = set.Items[o.Index].URLOf(o.Side)
		}

		err := s.db.Store(&databackend.Result{
			Generation: o.Generation,
			Index:      o.Index,
			Side:       o.Side.String(),
			URL:        url,
			Status:     o.Status.String(),
			DurationMs: float64(o.Duration) / float64(time.Millisecond),
			SettledAt:  s.clock.Now(),
		})
		if err != nil {
			log.Warn().
				Str("component", "profiler_service").
				Err(err).
				Msg("problem occurred while storing the result")
		}
	}

	s.publish()
}

// publish reports the current result set to the change listener and wakes
// up waiters.
func (s *Service) publish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	set := s.agg.Snapshot()

	if s.onChange != nil {
		s.onChange(BuildView(set, s.buckets))
	}

	s.mu.Lock()
	s.published = set
	close(s.changedCh)
	s.changedCh = make(chan struct{})
	s.mu.Unlock()
}
