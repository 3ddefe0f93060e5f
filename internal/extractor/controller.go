package extractor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/a3tai/form990-extractor/internal/upload"
)

// Extractor is the remote extraction call
type Extractor interface {
	Extract(ctx context.Context, file *upload.FileHandle) (Outcome, error)
}

// Controller runs one submission at a time through
// Idle -> Submitting -> Succeeded|Failed. It does not queue or coalesce:
// callers must not start a submission while one is in flight.
type Controller struct {
	extractor Extractor
	logger    *zap.Logger

	mu    sync.Mutex
	state RequestState
}

// NewController creates a controller around an extractor
func NewController(extractor Extractor, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{extractor: extractor, logger: logger}
}

// State returns the current request state
func (c *Controller) State() RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit sends file to the service and records the outcome. Without a file
// it is a no-op. Transport errors become a Failed state; no error escapes.
func (c *Controller) Submit(ctx context.Context, file *upload.FileHandle) RequestState {
	if file == nil {
		return c.State()
	}

	seq := c.dispatch(RequestEvent{Kind: SubmitStarted}).Seq

	outcome, err := c.extractor.Extract(ctx, file)
	if err != nil {
		c.logger.Warn("extract.failed", zap.String("file", file.Name), zap.Error(err))
		outcome = failure(0, fmt.Sprintf("%s: %v", FallbackServiceError, err))
	}

	return c.dispatch(RequestEvent{Kind: SubmitResolved, Outcome: outcome, Seq: seq})
}

// Reset returns the controller to Idle, dropping any result or error
func (c *Controller) Reset() RequestState {
	return c.dispatch(RequestEvent{Kind: SubmitReset})
}

func (c *Controller) dispatch(ev RequestEvent) RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, ev)
	return c.state
}
