// Package executor runs an approved plan against a browser page, one action
// at a time, and stops at the first failure.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/entrhq/browserguard/pkg/browser"
	"github.com/entrhq/browserguard/pkg/logging"
	"github.com/entrhq/browserguard/pkg/plan"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/entrhq/browserguard/pkg/executor"

// ErrInvalidNavigationURL is returned for a navigate step whose URL is not an
// absolute http(s) URL.
var ErrInvalidNavigationURL = errors.New("invalid navigation url")

// Options holds the delays used between steps.
type Options struct {
	// DefaultWait is used by wait steps without explicit seconds.
	DefaultWait time.Duration
	// NavigateSettle is slept after every navigation.
	NavigateSettle time.Duration
	// ActionSettle is slept after click, fill and submit.
	ActionSettle time.Duration
}

// DefaultOptions returns the stock delays.
func DefaultOptions() Options {
	return Options{
		DefaultWait:    2 * time.Second,
		NavigateSettle: 2 * time.Second,
		ActionSettle:   500 * time.Millisecond,
	}
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProgress writes one "[i/n] Action: ..." line per step to w.
func WithProgress(w io.Writer) Option {
	return func(e *Executor) {
		e.progress = w
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithSleep replaces the context-aware timer sleep.
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// Executor drives a browser.Page through a plan.
type Executor struct {
	page     browser.Page
	opts     Options
	logger   *logging.Logger
	progress io.Writer
	tracer   trace.Tracer
	sleep    SleepFunc
	now      func() time.Time
}

// New creates an executor for page.
func New(page browser.Page, opts Options, options ...Option) *Executor {
	e := &Executor{
		page:     page,
		opts:     opts,
		logger:   logging.Nop(),
		progress: io.Discard,
		tracer:   otel.Tracer(tracerName),
		sleep:    Sleep,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Run executes p in order. The first failing step ends the run and every
// later step is reported as skipped. Run does not return an error: the
// outcome of each step is in the report.
func (e *Executor) Run(ctx context.Context, p plan.Plan) *Report {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: e.now(),
		Steps:     make([]StepOutcome, 0, len(p)),
	}

	ctx, span := e.tracer.Start(ctx, "executor.Run", trace.WithAttributes(
		attribute.String("browserguard.run.id", report.RunID),
		attribute.Int("browserguard.plan.steps", len(p)),
	))
	defer span.End()

	e.logger.Infof("run %s: executing %d step(s)", report.RunID, len(p))

	failed := false
	for i, a := range p {
		if failed {
			report.Steps = append(report.Steps, StepOutcome{Index: i, Action: a, Status: StatusSkipped})
			continue
		}

		fmt.Fprintf(e.progress, "[%d/%d] Action: %s\n", i+1, len(p), a)

		outcome := e.runStep(ctx, i, a)
		report.Steps = append(report.Steps, outcome)

		if outcome.Err != nil {
			failed = true
			e.logger.Errorf("run %s: step %d (%s) failed: %v", report.RunID, i+1, kindOf(a), outcome.Err)
			fmt.Fprintf(e.progress, "Error executing step %d: %v\n", i+1, outcome.Err)
		}
	}

	report.FinishedAt = e.now()
	if f, ok := report.Failure(); ok {
		span.SetStatus(codes.Error, f.Err.Error())
		e.logger.Warnf("run %s: stopped at step %d, %d skipped", report.RunID, f.Index+1, report.Count(StatusSkipped))
	} else {
		e.logger.Infof("run %s: all %d step(s) succeeded", report.RunID, len(p))
	}
	return report
}

func (e *Executor) runStep(ctx context.Context, i int, a plan.Action) (outcome StepOutcome) {
	outcome = StepOutcome{Index: i, Action: a}
	start := e.now()

	ctx, span := e.tracer.Start(ctx, "executor.step", trace.WithAttributes(
		attribute.Int("browserguard.step.index", i),
		attribute.String("browserguard.step.action", kindOf(a)),
	))

	defer func() {
		if r := recover(); r != nil {
			outcome.Err = fmt.Errorf("step %d panicked: %v", i+1, r)
		}
		outcome.Duration = e.now().Sub(start)
		if outcome.Err != nil {
			outcome.Status = StatusFailed
			span.RecordError(outcome.Err)
			span.SetStatus(codes.Error, outcome.Err.Error())
		} else {
			outcome.Status = StatusSuccess
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	e.logger.Debugf("step %d: %s", i+1, a)
	outcome.Err = e.perform(ctx, a)
	return outcome
}

func (e *Executor) perform(ctx context.Context, a plan.Action) error {
	switch act := a.(type) {
	case plan.Wait:
		d := e.opts.DefaultWait
		if act.Seconds != nil {
			secs := *act.Seconds
			if math.IsNaN(secs) || secs < 0 || secs >= plan.MaxWaitSeconds {
				return fmt.Errorf("%w: wait of %v seconds is out of range", plan.ErrInvalidActionShape, secs)
			}
			d = time.Duration(secs * float64(time.Second))
		}
		return e.sleep(ctx, d)

	case plan.Navigate:
		if err := plan.CheckURL(act.URL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidNavigationURL, err)
		}
		if err := e.page.Open(ctx, act.URL); err != nil {
			return fmt.Errorf("navigate to %s: %w", act.URL, err)
		}
		return e.sleep(ctx, e.opts.NavigateSettle)

	case plan.Click:
		el, err := browser.Resolve(ctx, e.page, act.By, act.Selector)
		if err != nil {
			return err
		}
		if err := el.Click(ctx); err != nil {
			return fmt.Errorf("click %s=%q: %w", act.By, act.Selector, err)
		}
		return e.sleep(ctx, e.opts.ActionSettle)

	case plan.Fill:
		el, err := browser.Resolve(ctx, e.page, act.By, act.Selector)
		if err != nil {
			return err
		}
		if err := el.Clear(ctx); err != nil {
			return fmt.Errorf("clear %s=%q: %w", act.By, act.Selector, err)
		}
		if err := el.Type(ctx, act.Value); err != nil {
			return fmt.Errorf("type into %s=%q: %w", act.By, act.Selector, err)
		}
		return e.sleep(ctx, e.opts.ActionSettle)

	case plan.Submit:
		el, err := browser.Resolve(ctx, e.page, act.By, act.Selector)
		if err != nil {
			return err
		}
		if err := el.Submit(ctx); err != nil {
			if !errors.Is(err, browser.ErrSubmitUnsupported) {
				return fmt.Errorf("submit %s=%q: %w", act.By, act.Selector, err)
			}
			e.logger.Infof("submit %s=%q: no form, clicking instead", act.By, act.Selector)
			if err := el.Click(ctx); err != nil {
				return fmt.Errorf("submit %s=%q: click fallback: %w", act.By, act.Selector, err)
			}
		}
		return e.sleep(ctx, e.opts.ActionSettle)
	}

	return fmt.Errorf("%w: %T", plan.ErrUnknownAction, a)
}

func kindOf(a plan.Action) string {
	if a == nil {
		return "unknown"
	}
	return string(a.Kind())
}

// Sleep waits for d, returning early with ctx.Err() when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
