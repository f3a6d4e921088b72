package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/fingerspell/internal/logging"
)

// ErrActionFailed wraps the error reported by a plugin response.
var ErrActionFailed = errors.New("plugin action failed")

// Binding names a plugin action to run for a letter.
type Binding struct {
	Plugin string
	Action string
	Config json.RawMessage
}

// BindingSource returns the bindings of a letter.
type BindingSource interface {
	Bindings(letter string) ([]Binding, error)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithOutput runs action of the named plugin for every recognized letter.
func WithOutput(plugin, action string) DispatcherOption {
	return func(d *Dispatcher) {
		if plugin != "" {
			d.output = &Binding{Plugin: plugin, Action: action}
		}
	}
}

// WithBindingSource adds per-letter bindings.
func WithBindingSource(src BindingSource) DispatcherOption {
	return func(d *Dispatcher) { d.bindings = src }
}

// WithDispatchLogger sets the dispatcher logger.
func WithDispatchLogger(l logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithQueueSize sets how many letters may wait for a plugin run.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan event, n)
		}
	}
}

type event struct {
	letter     string
	confidence float64
}

// Dispatcher turns recognized letters into plugin runs. Dispatch never blocks
// so it can be called from the recognizer's change callback; letters arriving
// while the queue is full are dropped.
type Dispatcher struct {
	plugins  *Manager
	exec     *Executor
	output   *Binding
	bindings BindingSource
	logger   logging.Logger
	queue    chan event
}

// NewDispatcher creates a dispatcher over discovered plugins.
func NewDispatcher(mgr *Manager, exec *Executor, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		plugins: mgr,
		exec:    exec,
		logger:  logging.Nop(),
		queue:   make(chan event, 16),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch queues a letter. It reports false when the letter was ignored:
// empty letters, or a full queue.
func (d *Dispatcher) Dispatch(letter string, confidence float64) bool {
	if letter == "" {
		return false
	}
	select {
	case d.queue <- event{letter: letter, confidence: confidence}:
		return true
	default:
		d.logger.Warnw("dispatch queue full, dropping letter", "letter", letter)
		return false
	}
}

// Run handles queued letters until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.queue:
			if err := d.Handle(ctx, ev.letter, ev.confidence); err != nil {
				d.logger.Warnw("plugin dispatch failed", "letter", ev.letter, "error", err)
			}
		}
	}
}

// Handle runs every binding of the letter synchronously: the output plugin
// first, then the letter's own bindings. All failures are joined.
func (d *Dispatcher) Handle(ctx context.Context, letter string, confidence float64) error {
	letter = strings.ToUpper(letter)

	var targets []Binding
	if d.output != nil {
		targets = append(targets, *d.output)
	}
	if d.bindings != nil {
		bound, err := d.bindings.Bindings(letter)
		if err != nil {
			return fmt.Errorf("load bindings for %q: %w", letter, err)
		}
		targets = append(targets, bound...)
	}

	var errs []error
	for _, b := range targets {
		if err := d.run(ctx, b, letter, confidence); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", b.Plugin, b.Action, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) run(ctx context.Context, b Binding, letter string, confidence float64) error {
	p, err := d.plugins.Get(b.Plugin)
	if err != nil {
		return err
	}

	resp, err := d.exec.Execute(ctx, p, &Request{
		Action:     b.Action,
		Letter:     letter,
		Confidence: confidence,
		Config:     b.Config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrActionFailed, resp.Error)
	}

	d.logger.Debugw("plugin action ran", "plugin", b.Plugin, "action", b.Action, "letter", letter)
	return nil
}
