// Package runner wires the guarded pipeline together: a task and a page
// snapshot go to the planner, the reply is parsed, checked against the
// domain policy, shown to a human, and only then executed.
//
// Every stage before execution can end the run. Nothing touches the page
// until the plan has been parsed, vetted and approved.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/browserguard/pkg/approval"
	"github.com/entrhq/browserguard/pkg/browser"
	"github.com/entrhq/browserguard/pkg/executor"
	"github.com/entrhq/browserguard/pkg/logging"
	"github.com/entrhq/browserguard/pkg/plan"
	"github.com/entrhq/browserguard/pkg/planner"
	"github.com/entrhq/browserguard/pkg/policy"
)

// ErrEmptyTask is returned when no task was given.
var ErrEmptyTask = errors.New("no task provided")

// Result describes one pass through the pipeline.
type Result struct {
	Task    string
	PageURL string
	// Raw is the planner's reply as received.
	Raw  string
	Plan plan.Plan
	// Approved is false when the human declined; Report is then nil.
	Approved bool
	Report   *executor.Report
}

// Runner owns one browser page and runs tasks against it one at a time.
type Runner struct {
	mu sync.Mutex

	page     browser.Page
	planner  planner.Planner
	policy   *policy.Gate
	approval *approval.Gate
	executor *executor.Executor

	logger *logging.Logger
	out    io.Writer
	settle time.Duration
	sleep  executor.SleepFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOutput sets where status lines for the user are written.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithSettle sets how long Open waits after loading the start page.
func WithSettle(d time.Duration) Option {
	return func(r *Runner) {
		r.settle = d
	}
}

// WithSleep replaces the sleep used after opening the start page.
func WithSleep(fn executor.SleepFunc) Option {
	return func(r *Runner) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// New creates a runner. The executor must drive the same page.
func New(page browser.Page, pl planner.Planner, pol *policy.Gate, appr *approval.Gate, exec *executor.Executor, opts ...Option) *Runner {
	r := &Runner{
		page:     page,
		planner:  pl,
		policy:   pol,
		approval: appr,
		executor: exec,
		logger:   logging.Nop(),
		out:      io.Discard,
		settle:   2 * time.Second,
		sleep:    executor.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open checks startURL against the domain policy, asking decider about an
// unlisted domain, and loads it.
func (r *Runner) Open(ctx context.Context, startURL string, decider policy.Decider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := plan.CheckURL(startURL); err != nil {
		return fmt.Errorf("start url: %w", err)
	}
	if err := r.policy.CheckEntry(ctx, startURL, decider); err != nil {
		return err
	}

	r.logger.Infof("opening %s", startURL)
	if err := r.page.Open(ctx, startURL); err != nil {
		return fmt.Errorf("open %s: %w", startURL, err)
	}
	return r.sleep(ctx, r.settle)
}

// Run takes task through planning, validation, policy, approval and
// execution. A declined plan is not an error: the result has Approved set
// to false. Any other stage failure is returned together with whatever
// the result holds at that point.
func (r *Runner) Run(ctx context.Context, task string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task = strings.TrimSpace(task)
	res := &Result{Task: task, PageURL: r.page.URL()}
	if task == "" {
		return res, ErrEmptyTask
	}

	fmt.Fprintln(r.out, "Fetching page text for planning...")
	text, err := r.page.BodyText(ctx)
	if err != nil {
		r.logger.Warnf("could not read page text, planning from the URL alone: %v", err)
		text = ""
	}

	fmt.Fprintln(r.out, "Requesting plan...")
	raw, err := r.planner.Plan(ctx, planner.Request{PageURL: res.PageURL, PageText: text, Task: task})
	if err != nil {
		if !errors.Is(err, planner.ErrPlannerUnavailable) {
			err = fmt.Errorf("%w: %w", planner.ErrPlannerUnavailable, err)
		}
		return res, err
	}
	res.Raw = raw

	p, err := plan.Parse(raw)
	if err != nil {
		r.logger.Warnf("rejected planner output: %v", err)
		return res, err
	}
	res.Plan = p
	r.logger.Infof("parsed plan with %d step(s)", len(p))

	if err := r.policy.CheckPlan(p); err != nil {
		return res, err
	}

	if err := r.approval.Require(ctx, p); err != nil {
		if errors.Is(err, approval.ErrExecutionNotApproved) {
			fmt.Fprintln(r.out, "Plan not approved. Exiting without making changes.")
			return res, nil
		}
		return res, err
	}
	res.Approved = true

	fmt.Fprintln(r.out, "Executing plan...")
	res.Report = r.executor.Run(ctx, p)
	if res.Report.Succeeded() {
		fmt.Fprintln(r.out, "Plan executed successfully.")
	} else {
		fmt.Fprintln(r.out, "Plan execution failed or was stopped.")
	}
	return res, nil
}
