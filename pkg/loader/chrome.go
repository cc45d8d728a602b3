package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/dkorittki/imgprof/internal/pkg/executor/browser"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CacheDirName is the directory below os.TempDir() holding browser profiles.
const CacheDirName = "imgprof_loader"

var chromeLoaderID int32

// imageScript loads one image through the page's native Image primitive
// and resolves with the outcome and the in-page elapsed time.
const imageScript = `new Promise((resolve) => {
	const img = new Image();
	const start = performance.now();
	img.onload = () => resolve({ok: true, ms: performance.now() - start});
	img.onerror = () => resolve({ok: false, ms: performance.now() - start});
	img.src = %s;
})`

// imageResult is the value imageScript resolves with.
type imageResult struct {
	OK bool    `json:"ok"`
	Ms float64 `json:"ms"`
}

// ChromeLoader loads images inside a headless Chrome page.
type ChromeLoader struct {
	ID       int
	CacheDir string
	ExecPath string
	Timeout  time.Duration
	Executor browser.Executor
	startErr error
}

// NewChromeLoader returns a loader driving Chrome through e.
// An empty execPath uses the browser found on the system.
func NewChromeLoader(e browser.Executor, execPath string, timeout time.Duration) *ChromeLoader {
	return &ChromeLoader{
		ID:       int(atomic.AddInt32(&chromeLoaderID, 1)),
		ExecPath: execPath,
		Timeout:  timeout,
		Executor: e,
	}
}

// WithContext starts a browser bound to ctx with a fresh profile directory,
// which is removed once ctx is canceled.
func (l *ChromeLoader) WithContext(ctx context.Context) context.Context {
	cachedir := filepath.Join(os.TempDir(), CacheDirName, fmt.Sprintf("%d", l.ID))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.UserDataDir(cachedir),
	)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}

	allocCtx, _ := chromedp.NewExecAllocator(ctx, opts...)
	chromedpCtx, _ := chromedp.NewContext(allocCtx)

	l.CacheDir = cachedir
	loaderCtx := context.WithValue(chromedpCtx, contextKey{}, l)

	go l.cleanup(loaderCtx)

	if err := l.Executor.Run(loaderCtx, network.Enable()); err != nil {
		log.Error().
			Str("component", "loader").
			Int("id", l.ID).
			Err(err).
			Msg("cannot start browser")
		l.startErr = err
		return loaderCtx
	}

	l.Executor.ListenTarget(chromedpCtx, func(ev interface{}) {
		netEv, ok := ev.(*network.EventResponseReceived)
		if !ok || netEv.Type != network.ResourceTypeImage {
			return
		}

		log.Debug().
			Str("component", "loader").
			Int("id", l.ID).
			Str("url", netEv.Response.URL).
			Int64("status", netEv.Response.Status).
			Str("proto", netEv.Response.Protocol).
			Msg("received image response")
	})

	return loaderCtx
}

// Load loads url in the browser page. See LoadTimed.
func (l *ChromeLoader) Load(ctx context.Context, url string) error {
	_, err := l.LoadTimed(ctx, url)
	return err
}

// LoadTimed loads url through the page's Image primitive and returns
// the duration measured by the page between setting src and the load event.
func (l *ChromeLoader) LoadTimed(ctx context.Context, url string) (time.Duration, error) {
	if _, ok := FromContext(ctx).(*ChromeLoader); !ok {
		return 0, ErrNoLoader
	}
	if l.startErr != nil {
		return 0, &LoadError{URL: url, Err: l.startErr}
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	src, err := json.Marshal(url)
	if err != nil {
		return 0, &LoadError{URL: url, Err: err}
	}

	var res imageResult
	if err := l.Executor.Evaluate(ctx, fmt.Sprintf(imageScript, src), &res); err != nil {
		return 0, &LoadError{URL: url, Err: err}
	}

	if !res.OK {
		return 0, &LoadError{URL: url, Err: ErrImageFailed}
	}

	return time.Duration(res.Ms * float64(time.Millisecond)), nil
}

// cleanup waits for ctx to end and removes the browser profile.
func (l *ChromeLoader) cleanup(ctx context.Context) {
	<-ctx.Done()

	log.Debug().
		Str("component", "loader").
		Int("id", l.ID).
		Str("cachedir", l.CacheDir).
		Msg("delete cache")

	var err error
	for i := 0; i < 10; i++ {
		err = os.RemoveAll(l.CacheDir)
		if err == nil {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}

	log.Warn().
		Str("component", "loader").
		Int("id", l.ID).
		Err(errors.Wrap(err, "cannot remove profile")).
		Msg("can't delete cache")
}
