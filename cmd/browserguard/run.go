package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/entrhq/browserguard/pkg/approval"
	"github.com/entrhq/browserguard/pkg/browser"
	"github.com/entrhq/browserguard/pkg/config"
	"github.com/entrhq/browserguard/pkg/executor"
	"github.com/entrhq/browserguard/pkg/llm/openai"
	"github.com/entrhq/browserguard/pkg/logging"
	"github.com/entrhq/browserguard/pkg/plan"
	"github.com/entrhq/browserguard/pkg/planner"
	"github.com/entrhq/browserguard/pkg/policy"
	"github.com/entrhq/browserguard/pkg/runner"
	"github.com/entrhq/browserguard/pkg/tracing"
	"github.com/mattn/go-isatty"
	cli "github.com/urfave/cli/v3"
)

const defaultStartURL = "https://example.com"

type options struct {
	startURL string
	task     string
	noColor  bool
}

// loadConfig layers the config file, the environment and the command line.
func loadConfig(command *cli.Command) (*config.Config, error) {
	if err := config.LoadEnv(command.String("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return nil, err
	}

	if v := command.String("model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := command.String("api-key"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := command.String("base-url"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := command.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if command.IsSet("headless") {
		cfg.Browser.Headless = command.Bool("headless")
	}
	cfg.AllowedDomains = append(cfg.AllowedDomains, command.StringSlice("allow-domain")...)
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("API key is required. Set OPENAI_API_KEY in .env or the environment, or use --api-key")
	}
	return cfg, nil
}

// newLogger opens the session log file. When the log directory is unusable
// the stderr logger NewLogger falls back to is kept; it has already warned.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if cfg.Logging.Dir != "" {
		logging.SetDirectory(cfg.Logging.Dir)
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger, _ := logging.NewLogger("browserguard", level)
	return logger, nil
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	if tracing.Enabled() {
		tp, err := tracing.Setup(ctx, "browserguard")
		if err != nil {
			logger.Warnf("tracing disabled: %v", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Warnf("tracer shutdown: %v", err)
				}
			}()
		}
	}

	color := !opts.noColor && isatty.IsTerminal(os.Stdout.Fd())
	renderer := approval.NewRenderer(os.Stdout,
		approval.WithColor(color),
		approval.WithDefaultWait(cfg.Execution.DefaultWait))
	prompt := approval.NewPrompt(os.Stdin, os.Stdout,
		approval.WithToken(cfg.Approval.Token),
		approval.WithRenderer(renderer))

	provider, err := openai.NewProvider(cfg.LLM.APIKey,
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL))
	if err != nil {
		return err
	}

	allowlist := policy.NewAllowlist(cfg.AllowedDomains)
	policyGate := policy.NewGate(allowlist, logger.With("policy"))

	fmt.Println("=== browserguard ===")
	fmt.Printf("Allowed domains: %v\n", allowlist.Baseline())

	startURL := opts.startURL
	if startURL == "" {
		answer, err := prompt.Ask(ctx, fmt.Sprintf("Enter the URL you want to open (or press Enter to open %s): ", defaultStartURL))
		if err != nil {
			return err
		}
		startURL = answer
	}
	if startURL == "" {
		startURL = defaultStartURL
	}
	if err := plan.CheckURL(startURL); err != nil {
		fmt.Println("Invalid URL. Exiting.")
		return err
	}

	fmt.Println("Target domain:", policy.NormalizeDomain(startURL))
	if err := policyGate.CheckEntry(ctx, startURL, prompt); err != nil {
		if errors.Is(err, policy.ErrDomainNotAllowed) {
			fmt.Println("Add the domain to allowed_domains in the config to enable execution. Exiting.")
		}
		return err
	}

	manager := browser.NewManager(cfg.Browser.InstallDriver)
	if err := manager.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			logger.Warnf("browser shutdown: %v", err)
		}
		fmt.Println("Browser closed. Done.")
	}()

	session, err := manager.StartSession("main", browser.SessionOptions{
		Headless:      cfg.Browser.Headless,
		LookupTimeout: cfg.Browser.LookupTimeout,
		Viewport: &browser.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
	})
	if err != nil {
		return err
	}

	exec := executor.New(session, executor.Options{
		DefaultWait:    cfg.Execution.DefaultWait,
		NavigateSettle: cfg.Execution.NavigateSettle,
		ActionSettle:   cfg.Execution.ActionSettle,
	}, executor.WithLogger(logger.With("executor")), executor.WithProgress(os.Stdout))

	planr := planner.NewLLMPlanner(provider,
		planner.WithMaxPageChars(cfg.Planner.MaxPageChars),
		planner.WithLogger(logger.With("planner")))

	r := runner.New(session, planr, policyGate,
		approval.NewGate(prompt, logger.With("approval")), exec,
		runner.WithLogger(logger.With("runner")),
		runner.WithOutput(os.Stdout),
		runner.WithSettle(cfg.Execution.NavigateSettle))

	if err := r.Open(ctx, startURL, prompt); err != nil {
		return err
	}
	fmt.Println("Page loaded.")

	task := opts.task
	if task == "" {
		task, err = prompt.Ask(ctx, "Describe the task you want the AI to perform on this page (be precise):\n> ")
		if err != nil {
			return err
		}
	}

	res, err := r.Run(ctx, task)
	if err != nil {
		return report(res, err)
	}
	if res.Report != nil {
		fmt.Println(res.Report.Summary())
	}

	fmt.Printf("Keeping the browser open for %s for inspection...\n", cfg.Execution.InspectDelay)
	_ = executor.Sleep(ctx, cfg.Execution.InspectDelay)
	return nil
}

// report explains an aborted run to the user before returning its error.
func report(res *runner.Result, err error) error {
	switch {
	case errors.Is(err, runner.ErrEmptyTask):
		fmt.Println("No task provided. Exiting.")
		return nil
	case errors.Is(err, planner.ErrPlannerUnavailable):
		fmt.Println("Failed to get plan:", err)
	case errors.Is(err, plan.ErrMalformedPlan), errors.Is(err, plan.ErrUnknownAction), errors.Is(err, plan.ErrInvalidActionShape):
		fmt.Println("The planner's reply is not a valid plan. Nothing was executed.")
		if res != nil && res.Raw != "" {
			fmt.Printf("Raw response:\n%s\n", res.Raw)
		}
	case errors.Is(err, policy.ErrDisallowedNavigationTarget):
		fmt.Println("Refusing to execute plan:", err)
		fmt.Println("Edit allowed_domains if you trust this domain.")
	}
	return err
}
