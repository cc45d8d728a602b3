// Package browser wraps chromedp so browser interaction can be replaced in tests.
package browser

import (
	"context"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Executor runs DevTools actions against a browser target.
type Executor interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
	ListenTarget(ctx context.Context, fn func(ev interface{}))

	// Evaluate evaluates expression in the current page, awaits the
	// promise it returns and unmarshals the settled value into res.
	Evaluate(ctx context.Context, expression string, res interface{}) error
}

type ChromeDPExecutor struct{}

func New() *ChromeDPExecutor {
	return &ChromeDPExecutor{}
}

func (e *ChromeDPExecutor) Run(ctx context.Context, actions ...chromedp.Action) error {
	return chromedp.Run(ctx, actions...)
}

func (e *ChromeDPExecutor) ListenTarget(ctx context.Context, fn func(ev interface{})) {
	chromedp.ListenTarget(ctx, fn)
}

func (e *ChromeDPExecutor) Evaluate(ctx context.Context, expression string, res interface{}) error {
	return chromedp.Run(ctx, chromedp.Evaluate(expression, res, awaitPromise))
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
