package wizard

import (
	"context"
	"errors"
	"sync"

	"github.com/geocoder89/admissionhub/internal/client/apiclient"
	"github.com/geocoder89/admissionhub/internal/domain/application"
)

var (
	ErrSubmissionInFlight = errors.New("wizard: a submission is already in flight")
	ErrNotOnReview        = errors.New("wizard: submit is only available on the review step")
	ErrClosed             = errors.New("wizard: closed")
)

type Submitter interface {
	SubmitApplication(ctx context.Context, s apiclient.Submission) (application.Application, error)
}

// Controller owns one wizard's state. Safe for concurrent use.
type Controller struct {
	api Submitter

	mu     sync.Mutex
	state  State
	closed bool
}

func NewController(api Submitter, catalog application.Catalog) *Controller {
	return &Controller{api: api, state: InitialWith(catalog)}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Dispatch(a Action) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.state = Reduce(c.state, a)
	}
	return c.state
}

// Submit sends the draft. Only one request is ever in flight; a second call
// fails with ErrSubmissionInFlight without touching the network.
func (c *Controller) Submit(ctx context.Context) (application.Application, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return application.Application{}, ErrClosed
	case c.state.Submitting:
		c.mu.Unlock()
		return application.Application{}, ErrSubmissionInFlight
	case c.state.Step != Step4Review:
		c.mu.Unlock()
		return application.Application{}, ErrNotOnReview
	}
	c.state = Reduce(c.state, SubmitStarted{})
	body := c.state.Draft.Submission()
	c.mu.Unlock()

	app, err := c.api.SubmitApplication(ctx, body)

	c.mu.Lock()
	defer c.mu.Unlock()

	// unmounted while waiting: drop the answer
	if c.closed {
		return app, err
	}

	if err != nil {
		c.state = Reduce(c.state, SubmitFailed{Err: err})
		return application.Application{}, err
	}

	c.state = Reduce(c.state, SubmitSucceeded{Application: app})
	return app, nil
}

// Close detaches the controller; late responses no longer change state.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
