package orchestrator

import (
	"context"
	"fmt"

	"github.com/freightops/afrmm/pkg/logging"
	"github.com/freightops/afrmm/pkg/portal"
)

// Runner performs one end-to-end portal payment attempt.
type Runner interface {
	Run(ctx context.Context, req portal.Request) (*portal.Outcome, error)
}

// BrowserRunner launches a fresh browser session per attempt and
// drives it through the payment sequence. With KeepOpenOnSuccess set,
// a successful payment leaves the window alive so the operator can
// inspect the confirmation screen; that session dies with the process.
type BrowserRunner struct {
	Config            portal.Config
	KeepOpenOnSuccess bool
	Log               *logging.Logger
}

func (r *BrowserRunner) Run(ctx context.Context, req portal.Request) (*portal.Outcome, error) {
	session, err := portal.Launch(r.Config)
	if err != nil {
		return nil, fmt.Errorf("launch portal session: %w", err)
	}

	driver := portal.NewDriver(session.Page(), r.Config, r.Log)
	outcome, err := driver.Execute(ctx, req)

	if err == nil && outcome.Success && r.KeepOpenOnSuccess {
		return outcome, nil
	}
	_ = session.Close()
	return outcome, err
}

type attemptResult struct {
	outcome *portal.Outcome
	err     error
}

// startAttempt runs one attempt on its own goroutine and delivers
// exactly one result on the returned channel. The channel is buffered
// so the goroutine can finish even after the caller stopped waiting at
// its deadline.
func startAttempt(ctx context.Context, runner Runner, req portal.Request) <-chan attemptResult {
	ch := make(chan attemptResult, 1)
	go func() {
		outcome, err := runner.Run(ctx, req)
		ch <- attemptResult{outcome: outcome, err: err}
	}()
	return ch
}
