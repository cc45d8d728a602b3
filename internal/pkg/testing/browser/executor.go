// Package browser provides testify mock implementations of the browser executor.
package browser

import (
	"context"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/mock"
)

// TestExecutor implements the Executor interface as a plain testify mock.
type TestExecutor struct {
	mock.Mock
}

func NewTestExecutor() *TestExecutor {
	return &TestExecutor{}
}

func (e *TestExecutor) Run(ctx context.Context, actions ...chromedp.Action) error {
	args := e.Called(ctx, actions)
	return args.Error(0)
}

func (e *TestExecutor) ListenTarget(ctx context.Context, fn func(ev interface{})) {
	e.Called(ctx, fn)
}

func (e *TestExecutor) Evaluate(ctx context.Context, expression string, res interface{}) error {
	args := e.Called(ctx, expression, res)
	return args.Error(0)
}
