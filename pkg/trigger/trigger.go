// Package trigger turns submitted URL lists into measurement items and starts
// one independent, timed image load per item side.
package trigger

import (
	"context"

	"github.com/dkorittki/imgprof/pkg/loader"
	"github.com/dkorittki/imgprof/pkg/measurement"
	"github.com/rs/zerolog/log"
)

// Trigger starts image loads through a loader.
type Trigger struct {
	Loader loader.Loader
	Timer  *loader.Timer
}

// New returns a Trigger timing loads on the system clock.
func New(l loader.Loader) *Trigger {
	return &Trigger{Loader: l, Timer: loader.NewTimer()}
}

// Dispatch starts one load per side of every item, all in parallel, and returns
// immediately. report is called exactly once per started load, from the load's
// own goroutine, with the generation token gen.
//
// ctx must be the context returned by the loader's WithContext.
func (t *Trigger) Dispatch(ctx context.Context, gen uint64, items []measurement.Item, report func(measurement.Outcome)) {
	log.Debug().
		Str("component", "trigger").
		Uint64("generation", gen).
		Int("items", len(items)).
		Msg("dispatch loads")

	for i, it := range items {
		go t.load(ctx, gen, i, measurement.SidePrimary, it.URL, report)
		if it.Compared {
			go t.load(ctx, gen, i, measurement.SideComparison, it.URL2, report)
		}
	}
}

func (t *Trigger) load(ctx context.Context, gen uint64, index int, side measurement.Side, url string, report func(measurement.Outcome)) {
	o := measurement.Outcome{
		Generation: gen,
		Index:      index,
		Side:       side,
	}

	if _, err := Origin(url); err != nil {
		log.Debug().
			Str("component", "trigger").
			Int("index", index).
			Str("side", side.String()).
			Str("host", Host(url)).
			Err(err).
			Msg("skip malformed url")

		o.Status = measurement.StatusFailed
		report(o)
		return
	}

	var err error
	if tl, ok := t.Loader.(loader.TimedLoader); ok {
		o.Duration, err = tl.LoadTimed(ctx, url)
	} else {
		sw := t.Timer.Start()
		err = t.Loader.Load(ctx, url)
		o.Duration = sw.Elapsed()
	}

	if err != nil {
		log.Debug().
			Str("component", "trigger").
			Int("index", index).
			Str("side", side.String()).
			Str("url", url).
			Err(err).
			Msg("load failed")

		o.Status = measurement.StatusFailed
		o.Duration = 0
	} else {
		o.Status = measurement.StatusLoaded
	}

	report(o)
}
