package browser

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/mock"
)

var (
	// URL which is used in the simulated network event.
	URL = "http://foo.bar/image.png"

	// Status used in the simulated network event.
	Status = int64(200)

	// Protocol used in the simulated network event.
	Protocol = "h2"
)

// EventTestExecutor implements the Executor interface and can be used in tests as a
// testify mock object. It simulates an image network event while listening for a devtools target event.
type EventTestExecutor struct {
	mock.Mock
}

// NewEventTestExecutor returns a new EventTestExecutor.
func NewEventTestExecutor() *EventTestExecutor {
	return &EventTestExecutor{}
}

// Run registers the method parameters and returns an error value declared by a testify mock setup.
// This can be used to assert a correct method call.
func (e *EventTestExecutor) Run(ctx context.Context, actions ...chromedp.Action) error {
	args := e.Called(ctx, actions)
	return args.Error(0)
}

// ListenTarget registers the method parameters, which can be asserted in unit tests.
// It also emits one image response event and one document response event,
// the latter of which listeners interested in images must ignore.
func (e *EventTestExecutor) ListenTarget(ctx context.Context, fn func(ev interface{})) {
	e.Called(ctx, fn)

	fn(&network.EventResponseReceived{
		RequestID: "testing",
		Type:      network.ResourceTypeImage,
		Response: &network.Response{
			URL:      URL,
			Status:   Status,
			Protocol: Protocol,
		},
	})

	fn(&network.EventResponseReceived{
		RequestID: "document",
		Type:      network.ResourceTypeDocument,
		Response: &network.Response{
			URL:    "about:blank",
			Status: Status,
		},
	})
}

// Evaluate registers the method parameters and returns an error value declared by a testify mock setup.
// Tests fill res through the mock's Run hook.
func (e *EventTestExecutor) Evaluate(ctx context.Context, expression string, res interface{}) error {
	args := e.Called(ctx, expression, res)
	return args.Error(0)
}
