package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/shotcoach/internal/domain"
	"github.com/vbonduro/shotcoach/internal/vision"
)

// FailureMessage is shown for every analysis failure; details go to the log.
const FailureMessage = "analysis failed, please retry"

var ErrInvalidTransition = errors.New("invalid state transition")

// Controller owns one session's state. It is safe for concurrent use by
// HTTP handlers and the analysis goroutine it starts.
type Controller struct {
	analyzer vision.VisionAnalyzer
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewController(analyzer vision.VisionAnalyzer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		analyzer: analyzer,
		logger:   logger,
		state:    Empty{},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) View() View {
	return ViewOf(c.State())
}

// SelectImage stores a new image and moves to ModeSelect, dropping any
// previous mode, result or error. An in-flight analysis is cancelled.
func (c *Controller) SelectImage(imageDataURI string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.state = ModeSelect{Image: imageDataURI}
	c.logger.Debug("image selected", "bytes", len(imageDataURI))
}

// ChooseMode starts analysis of the selected image and moves to Loading.
// The analysis runs detached from ctx's cancellation; Reset or a new image
// cancels it instead. It returns the request ID of the started analysis.
func (c *Controller) ChooseMode(ctx context.Context, mode domain.Mode) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sel, ok := c.state.(ModeSelect)
	if !ok {
		return "", fmt.Errorf("%w: choose mode from %s", ErrInvalidTransition, c.state.Screen())
	}
	if _, err := domain.ParseMode(string(mode)); err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	requestID := uuid.NewString()
	c.cancel = cancel
	c.state = Loading{Image: sel.Image, Mode: mode, RequestID: requestID}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.run(reqCtx, requestID, sel.Image, mode)
	}()

	return requestID, nil
}

func (c *Controller) run(ctx context.Context, requestID, image string, mode domain.Mode) {
	logger := c.logger.With("request_id", requestID, "mode", mode)
	logger.Info("analysis started")
	start := time.Now()

	analysis, err := c.analyzer.Analyze(ctx, image, mode)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.state.(Loading); !ok || cur.RequestID != requestID {
		logger.Debug("discarding stale analysis result", "error", err)
		return
	}
	c.cancel = nil

	if err != nil {
		logger.Error("analysis failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		c.state = Failed{Image: image, Mode: mode, Message: FailureMessage}
		return
	}
	logger.Info("analysis complete", "tips", len(analysis.Tips), "duration_ms", time.Since(start).Milliseconds())
	c.state = Result{Image: image, Mode: mode, Analysis: analysis}
}

// Reset clears everything and returns to Empty.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.state = Empty{}
}

// Wait blocks until every analysis started so far has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
