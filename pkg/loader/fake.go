package loader

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FakeDelay is the simulated load duration of a fake loader created by New.
const FakeDelay = 50 * time.Millisecond

// FakeLoader simulates image loads with a fixed delay.
// URLs registered with Fail settle as failed after the same delay.
type FakeLoader struct {
	Delay time.Duration

	mu       sync.Mutex
	failures map[string]bool
	calls    []string
}

// NewFakeLoader returns a fake loader which succeeds after delay.
func NewFakeLoader(delay time.Duration) *FakeLoader {
	return &FakeLoader{Delay: delay, failures: make(map[string]bool)}
}

// Fail makes every subsequent load of url fail.
func (l *FakeLoader) Fail(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[url] = true
}

// Calls returns the URLs loaded so far in call order.
func (l *FakeLoader) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	calls := make([]string, len(l.calls))
	copy(calls, l.calls)
	return calls
}

func (l *FakeLoader) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func (l *FakeLoader) Load(ctx context.Context, url string) error {
	log.Debug().
		Str("component", "loader").
		Str("type", "fake").
		Str("url", url).
		Msg("load url")

	l.mu.Lock()
	l.calls = append(l.calls, url)
	fail := l.failures[url]
	l.mu.Unlock()

	select {
	case <-time.After(l.Delay):
	case <-ctx.Done():
		return &LoadError{URL: url, Err: ctx.Err()}
	}

	if fail {
		return &LoadError{URL: url, Err: ErrImageFailed}
	}
	return nil
}
