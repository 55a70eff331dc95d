package ui

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/wayseat/internal/logger"
)

// ProgramConfig holds configuration for running a UI program
type ProgramConfig struct {
	AltScreen bool
	Input     io.Reader // defaults to stdin
	Output    io.Writer // defaults to stdout
	// Log lines would tear a full-screen view, so they go here while the
	// program runs
	LogOutput io.Writer
}

// RunProgram runs model until it quits or ctx is cancelled.
func RunProgram(ctx context.Context, model tea.Model, cfg ProgramConfig) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	}

	logOutput := cfg.LogOutput
	if logOutput == nil {
		logOutput = io.Discard
	}
	logger.SetOutput(logOutput)
	defer logger.SetOutput(os.Stderr)

	p := tea.NewProgram(model, opts...)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return ignoreKilled(err)
	case <-ctx.Done():
		p.Quit()
		select {
		case err := <-errCh:
			return ignoreKilled(err)
		case <-time.After(2 * time.Second):
			// Force kill the program if it's not responding
			p.Kill()
			<-errCh
			return ctx.Err()
		}
	}
}

// Context cancellation surfaces as ErrProgramKilled; that is a normal exit
func ignoreKilled(err error) error {
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
