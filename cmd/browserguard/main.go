// Package main provides browserguard, a terminal tool that asks an LLM for a
// browser automation plan, checks it against a domain allowlist, shows it
// to you for approval and only then runs it in a real browser.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
)

const version = "0.1.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		cancel()
		log.Fatalf("browserguard: %v", err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "browserguard",
		Usage:   "Plan browser actions with an LLM, approve them, then run them",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file (default ~/.browserguard/config.yaml)",
				Sources: cli.EnvVars("BROWSERGUARD_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "Path to a .env file with OPENAI_API_KEY",
				Value:   ".env",
				Sources: cli.EnvVars("BROWSERGUARD_ENV_FILE"),
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "LLM model used for planning (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "OpenAI API key (or set OPENAI_API_KEY)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "OpenAI-compatible API base URL (or set OPENAI_BASE_URL)",
			},
			&cli.StringSliceFlag{
				Name:  "allow-domain",
				Usage: "Add a domain to the baseline allowlist (repeatable)",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Start URL; prompted for when omitted",
			},
			&cli.StringFlag{
				Name:  "task",
				Usage: "Task description; prompted for when omitted",
			},
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "Run the browser without a window",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored plan output (also honors NO_COLOR)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("BROWSERGUARD_LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			return run(ctx, cfg, options{
				startURL: command.String("url"),
				task:     command.String("task"),
				noColor:  command.Bool("no-color") || os.Getenv("NO_COLOR") != "",
			})
		},
	}
}
