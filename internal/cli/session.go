package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/coach"
	"github.com/aretw0/coach/internal/presentation/tui"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/runner"
	"github.com/aretw0/coach/pkg/session"
)

// ChatOptions configures an interactive session.
type ChatOptions struct {
	SessionID  string
	Problem    string
	SkillLevel domain.SkillLevel
	// JSON switches to JSON-Lines input and output.
	JSON bool
	// Plain disables the banner and markdown rendering.
	Plain bool

	In  io.Reader
	Out io.Writer
}

// RunChat runs one interactive session on eng until the input ends.
func RunChat(ctx context.Context, eng *coach.Engine, opts ChatOptions, logger *slog.Logger) error {
	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		rich := !opts.Plain && tui.IsTerminal(opts.Out)
		var textOpts []runner.TextHandlerOption
		if rich {
			tui.PrintBanner(opts.Out, coach.Version)
			if render := tui.NewRenderer(tui.TerminalWidth(opts.Out)); render != nil {
				textOpts = append(textOpts, runner.WithTextHandlerRenderer(render))
			}
		}
		handler = runner.NewTextHandler(opts.In, opts.Out, textOpts...)
	}

	runOpts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithHandler(handler),
		runner.WithSessionID(opts.SessionID),
		runner.WithProblem(opts.Problem),
	}
	if opts.SkillLevel != "" {
		runOpts = append(runOpts, runner.WithStartOptions(session.WithSkillLevel(opts.SkillLevel)))
	}

	logger.Info("chat started", "session_id", opts.SessionID, "json", opts.JSON)
	return runner.New(eng, runOpts...).Run(ctx)
}
