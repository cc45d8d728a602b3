package profiler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkorittki/imgprof/internal/pkg/testing/fakeserver"
	"github.com/dkorittki/imgprof/pkg/loader"
	"github.com/dkorittki/imgprof/pkg/measurement"
	"github.com/dkorittki/imgprof/pkg/profiler/config"
	"github.com/dkorittki/imgprof/pkg/profiler/databackend"
	"github.com/dkorittki/imgprof/pkg/settings"
	"github.com/dkorittki/imgprof/pkg/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateLoader blocks loads of URLs containing "slow" until open is closed.
type gateLoader struct {
	open     chan struct{}
	mu       sync.Mutex
	returned int
}

func newGateLoader() *gateLoader {
	return &gateLoader{open: make(chan struct{})}
}

func (l *gateLoader) WithContext(ctx context.Context) context.Context {
	return ctx
}

func (l *gateLoader) Load(ctx context.Context, url string) error {
	defer func() {
		l.mu.Lock()
		l.returned++
		l.mu.Unlock()
	}()

	if strings.Contains(url, "slow") {
		select {
		case <-l.open:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (l *gateLoader) Returned() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.returned
}

type memoryBackend struct {
	mu      sync.Mutex
	results []databackend.Result
}

func (b *memoryBackend) Store(r *databackend.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, *r)
	return nil
}

func (b *memoryBackend) Close() error {
	return nil
}

// slowBackend stores like memoryBackend but takes its time doing so.
type slowBackend struct {
	memoryBackend
	delay time.Duration
}

func (b *slowBackend) Store(r *databackend.Result) error {
	time.Sleep(b.delay)
	return b.memoryBackend.Store(r)
}

func (b *memoryBackend) Results() []databackend.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]databackend.Result(nil), b.results...)
}

func start(t *testing.T, s *Service) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = s.Run(ctx)
	}()
	return ctx
}

func wait(t *testing.T, s *Service, ctx context.Context, gen uint64) View {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	view, err := s.Wait(ctx, gen)
	require.NoError(t, err)
	return view
}

func TestNew(t *testing.T) {
	store := settings.NewMemoryStore()
	require.NoError(t, store.Set(settings.Namespace+settings.KeyMode, "comparison"))
	require.NoError(t, store.Set(settings.Namespace+settings.KeyURLInput, "http://a.com/1.png"))

	s := New(store, loader.NewFakeLoader(time.Millisecond))

	assert.Equal(t, settings.ModeComparison, s.Settings().Mode)
	assert.Equal(t, "http://a.com/1.png", s.Settings().URLInput)
	assert.Empty(t, s.View().ResultSet.Items)
}

func TestService_Setters(t *testing.T) {
	store := settings.NewMemoryStore()
	s := New(store, loader.NewFakeLoader(time.Millisecond))

	require.NoError(t, s.SetMode(settings.ModeComparison))
	require.NoError(t, s.SetURLInput("http://a.com/1.png\nhttp://a.com/2.png"))
	require.NoError(t, s.SetComparisonBaseURL("http://b.com/"))
	require.NoError(t, s.SetCacheBust(true))

	assert.Equal(t, settings.Settings{
		Mode:              settings.ModeComparison,
		URLInput:          "http://a.com/1.png\nhttp://a.com/2.png",
		ComparisonBaseURL: "http://b.com/",
		CacheBust:         true,
	}, s.Settings())

	// a new session restores the same settings
	assert.Equal(t, s.Settings(), settings.Load(store))
}

func TestService_Submit(t *testing.T) {
	vars := []struct {
		name     string
		mode     settings.Mode
		fail     []string
		loaded   int
		failed   int
		compared bool
	}{
		{
			name:   "Single",
			mode:   settings.ModeSingle,
			loaded: 3,
		},
		{
			name:   "SingleWithFailure",
			mode:   settings.ModeSingle,
			fail:   []string{"http://a.com/2.png"},
			loaded: 2,
			failed: 1,
		},
		{
			name:     "Comparison",
			mode:     settings.ModeComparison,
			loaded:   3,
			compared: true,
		},
	}

	for _, v := range vars {
		t.Run(v.name, func(t *testing.T) {
			l := loader.NewFakeLoader(time.Millisecond)
			for _, u := range v.fail {
				l.Fail(u)
			}

			s := New(settings.NewMemoryStore(), l)
			require.NoError(t, s.SetMode(v.mode))
			require.NoError(t, s.SetComparisonBaseURL("http://b.com"))
			require.NoError(t, s.SetURLInput("http://a.com/1.png\n\nhttp://a.com/2.png\n  http://a.com/3.png  "))

			ctx := start(t, s)
			gen, err := s.Submit(ctx)
			require.NoError(t, err)

			view := wait(t, s, ctx, gen)

			assert.True(t, view.ResultSet.Complete())
			assert.Equal(t, v.compared, view.Compared())
			assert.Len(t, view.ResultSet.Items, 3)
			assert.Equal(t, v.loaded, view.Base.Loaded)
			assert.Equal(t, v.failed, view.Base.Failed)
			assert.Equal(t, "a.com", view.BaseHost)

			if v.compared {
				assert.Equal(t, "b.com", view.CompareHost)
				assert.Equal(t, 3, view.Compare.Loaded)
				assert.NotEmpty(t, view.PairHistogram)
				assert.Nil(t, view.Histogram)
				assert.NotNil(t, view.Verdict)
				assert.Len(t, view.ItemVerdicts, 3)
				assert.Len(t, l.Calls(), 6)
			} else {
				assert.NotEmpty(t, view.Histogram)
				assert.Nil(t, view.PairHistogram)
				assert.Nil(t, view.Verdict)
				assert.Len(t, l.Calls(), 3)
			}
		})
	}
}

func TestService_SubmitCacheBust(t *testing.T) {
	l := loader.NewFakeLoader(time.Millisecond)
	s := New(settings.NewMemoryStore(), l,
		WithClock(fixedClock(time.Unix(1700000000, 0))))
	require.NoError(t, s.SetCacheBust(true))
	require.NoError(t, s.SetURLInput("http://a.com/1.png\nhttp://a.com/2.png?w=10"))

	ctx := start(t, s)
	gen, err := s.Submit(ctx)
	require.NoError(t, err)
	view := wait(t, s, ctx, gen)

	assert.Equal(t, "http://a.com/1.png?_t=1700000000000", view.ResultSet.Items[0].URL)
	assert.Equal(t, "http://a.com/2.png?w=10&_t=1700000000000", view.ResultSet.Items[1].URL)
	assert.ElementsMatch(t, []string{
		"http://a.com/1.png?_t=1700000000000",
		"http://a.com/2.png?w=10&_t=1700000000000",
	}, l.Calls())
}

func TestService_SubmitEmpty(t *testing.T) {
	s := New(settings.NewMemoryStore(), loader.NewFakeLoader(time.Millisecond))
	require.NoError(t, s.SetURLInput("  \n\n "))

	ctx := start(t, s)
	_, err := s.Submit(ctx)
	assert.Equal(t, trigger.ErrNoURLs, err)
}

func TestService_SubmitNotRunning(t *testing.T) {
	s := New(settings.NewMemoryStore(), loader.NewFakeLoader(time.Millisecond))
	require.NoError(t, s.SetURLInput("http://a.com/1.png"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Submit(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestService_StaleOutcome(t *testing.T) {
	l := newGateLoader()
	db := &memoryBackend{}
	s := New(settings.NewMemoryStore(), l, WithDataBackend(db))

	ctx := start(t, s)

	require.NoError(t, s.SetURLInput("http://a.com/slow.png"))
	first, err := s.Submit(ctx)
	require.NoError(t, err)

	superseded := make(chan error, 1)
	go func() {
		_, err := s.Wait(ctx, first)
		superseded <- err
	}()

	require.NoError(t, s.SetURLInput("http://a.com/fast.png"))
	second, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	view := wait(t, s, ctx, second)
	assert.Equal(t, measurement.StatusLoaded, view.ResultSet.Items[0].State.Status)

	select {
	case err := <-superseded:
		assert.Equal(t, ErrSuperseded, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waiting for superseded generation did not return")
	}

	close(l.open)
	assert.Eventually(t, func() bool { return l.Returned() == 2 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	view = s.View()
	assert.Equal(t, second, view.ResultSet.Generation)
	require.Len(t, view.ResultSet.Items, 1)
	assert.Equal(t, "http://a.com/fast.png", view.ResultSet.Items[0].URL)

	results := db.Results()
	require.Len(t, results, 1)
	assert.Equal(t, second, results[0].Generation)
	assert.Equal(t, "http://a.com/fast.png", results[0].URL)
	assert.Equal(t, "loaded", results[0].Status)
}

func TestService_OnChange(t *testing.T) {
	var mu sync.Mutex
	var views []View

	s := New(settings.NewMemoryStore(), loader.NewFakeLoader(time.Millisecond),
		WithOnChange(func(v View) {
			mu.Lock()
			views = append(views, v)
			mu.Unlock()
		}))
	require.NoError(t, s.SetURLInput("http://a.com/1.png\nhttp://a.com/2.png"))

	ctx := start(t, s)
	gen, err := s.Submit(ctx)
	require.NoError(t, err)
	wait(t, s, ctx, gen)

	mu.Lock()
	defer mu.Unlock()

	// one change for the submission and one per settled load
	require.Len(t, views, 3)
	assert.Equal(t, 2, views[0].Base.Pending)
	assert.True(t, views[2].ResultSet.Complete())
}

func TestService_HTTPComparison(t *testing.T) {
	base := fakeserver.New()
	defer base.Close()
	alt := fakeserver.New()
	defer alt.Close()

	l, err := loader.NewHTTPLoader(config.ProtocolHTTP1, 0, "")
	require.NoError(t, err)

	db := &memoryBackend{}
	s := New(settings.NewMemoryStore(), l, WithDataBackend(db))
	require.NoError(t, s.SetMode(settings.ModeComparison))
	require.NoError(t, s.SetComparisonBaseURL(alt.URL+"/"))
	require.NoError(t, s.SetURLInput(strings.Join([]string{
		base.URL + "/1.png",
		base.URL + "/missing.png",
		base.URL + "/text.png",
	}, "\n")))

	ctx := start(t, s)
	gen, err := s.Submit(ctx)
	require.NoError(t, err)
	view := wait(t, s, ctx, gen)

	require.Len(t, view.ResultSet.Items, 3)
	assert.Equal(t, alt.URL+"/1.png", view.ResultSet.Items[0].URL2)
	assert.Equal(t, strings.TrimPrefix(base.URL, "http://"), view.BaseHost)
	assert.Equal(t, strings.TrimPrefix(alt.URL, "http://"), view.CompareHost)

	assert.Equal(t, 1, view.Base.Loaded)
	assert.Equal(t, 2, view.Base.Failed)
	assert.Equal(t, 1, view.Compare.Loaded)
	assert.Equal(t, 2, view.Compare.Failed)
	assert.NotNil(t, view.Verdict)
	assert.NotNil(t, view.ItemVerdicts[0])
	assert.Nil(t, view.ItemVerdicts[1])

	assert.Equal(t, 3, base.Requests())
	assert.Equal(t, 3, alt.Requests())
	assert.Len(t, db.Results(), 6)
}

func TestService_WaitIncludesStoredResults(t *testing.T) {
	db := &slowBackend{delay: 20 * time.Millisecond}
	s := New(settings.NewMemoryStore(), loader.NewFakeLoader(time.Millisecond), WithDataBackend(db))
	require.NoError(t, s.SetMode(settings.ModeComparison))
	require.NoError(t, s.SetComparisonBaseURL("http://b.com"))
	require.NoError(t, s.SetURLInput("http://a.com/1.png\nhttp://a.com/2.png\nhttp://a.com/3.png"))

	ctx := start(t, s)
	gen, err := s.Submit(ctx)
	require.NoError(t, err)
	wait(t, s, ctx, gen)

	assert.Len(t, db.Results(), 6)
}

func TestService_Done(t *testing.T) {
	db := &slowBackend{delay: 20 * time.Millisecond}
	s := New(settings.NewMemoryStore(), loader.NewFakeLoader(time.Millisecond), WithDataBackend(db))
	require.NoError(t, s.SetURLInput("http://a.com/1.png\nhttp://a.com/2.png"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = s.Run(ctx)
	}()

	_, err := s.Submit(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// nothing is stored once Run returned
	stored := len(db.Results())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, stored, len(db.Results()))
}

func TestService_OnChangeSerialized(t *testing.T) {
	var inFlight, overlaps, calls int32

	s := New(settings.NewMemoryStore(), loader.NewFakeLoader(time.Millisecond),
		WithOnChange(func(v View) {
			if atomic.AddInt32(&inFlight, 1) > 1 {
				atomic.AddInt32(&overlaps, 1)
			}
			atomic.AddInt32(&calls, 1)
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}))

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = fmt.Sprintf("http://a.com/%d.png", i)
	}
	require.NoError(t, s.SetURLInput(strings.Join(urls, "\n")))

	ctx := start(t, s)

	var last uint64
	for i := 0; i < 3; i++ {
		gen, err := s.Submit(ctx)
		require.NoError(t, err)
		last = gen
		time.Sleep(5 * time.Millisecond)
	}
	wait(t, s, ctx, last)

	assert.Equal(t, int32(0), atomic.LoadInt32(&overlaps))
	assert.Greater(t, atomic.LoadInt32(&calls), int32(3))
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time {
	return time.Time(c)
}
