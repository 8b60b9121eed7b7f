// Package agent answers natural-language telecom questions with a text
// generator and a small set of tools. Tool selection is explicit: the model
// is asked for a JSON action blob, which the agent parses and dispatches.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Generator continues a prompt with model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of one query.
type Result struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

type Config struct {
	SystemPrompt string
	// MaxSteps bounds the number of generations per query.
	MaxSteps int
	Logger   *logrus.Logger
}

type Agent struct {
	gen      Generator
	tools    *Registry
	system   string
	maxSteps int
	logger   *logrus.Entry
}

func New(gen Generator, tools *Registry, cfg Config) *Agent {
	if tools == nil {
		tools = NewRegistry()
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = SystemPrompt
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Agent{
		gen:      gen,
		tools:    tools,
		system:   cfg.SystemPrompt,
		maxSteps: cfg.MaxSteps,
		logger:   cfg.Logger.WithField("component", "agent"),
	}
}

// Answer runs the query through the model. Failures are reported in the
// result rather than returned.
func (a *Agent) Answer(ctx context.Context, query string) Result {
	text, err := a.run(ctx, query)
	if err != nil {
		a.logger.WithError(err).Warn("query failed")
		return Result{Response: err.Error(), Status: StatusError}
	}
	return Result{Response: text, Status: StatusSuccess}
}

func (a *Agent) run(ctx context.Context, query string) (string, error) {
	tools := a.tools.List()
	var (
		steps []step
		last  string
	)

	for i := 0; i < a.maxSteps; i++ {
		out, err := a.gen.Generate(ctx, buildPrompt(a.system, tools, query, steps))
		if err != nil {
			return "", err
		}
		out = cutObservation(out)
		last = out

		act, ok := parseAction(out)
		if !ok {
			return out, nil
		}
		if act.isFinal() {
			return act.Input, nil
		}

		logger := a.logger.WithFields(logrus.Fields{"tool": act.Name, "step": i + 1})
		tool, err := a.tools.Get(act.Name)
		if err != nil {
			logger.Debug("model asked for an unknown tool")
			steps = append(steps, step{
				output:      out,
				observation: fmt.Sprintf("%s is not a valid tool, try one of [%s].", act.Name, strings.Join(a.tools.Names(), ", ")),
			})
			continue
		}

		observation, err := tool.Run(ctx, act.Input)
		if err != nil {
			return "", fmt.Errorf("tool %s: %w", act.Name, err)
		}
		logger.Debug("tool finished")
		steps = append(steps, step{output: out, observation: observation})
	}

	return last, nil
}
