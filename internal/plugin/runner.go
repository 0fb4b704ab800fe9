package plugin

import (
	"context"
	"encoding/json"
	"fmt"
)

// Runner resolves plugins by name and executes them.
type Runner struct {
	manager  *Manager
	executor *Executor
}

// NewRunner combines a Manager and an Executor.
func NewRunner(m *Manager, e *Executor) *Runner {
	return &Runner{manager: m, executor: e}
}

// Manager returns the plugin manager.
func (r *Runner) Manager() *Manager { return r.manager }

// Run executes action of the named plugin for gesture. A plugin that
// answers with success=false is reported as an error.
func (r *Runner) Run(ctx context.Context, pluginName, action, gesture string, config json.RawMessage) (*Response, error) {
	p, err := r.manager.Get(pluginName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pluginName, err)
	}
	resp, err := r.executor.Execute(ctx, p, &Request{
		Action:  action,
		Gesture: gesture,
		Config:  config,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("plugin %s action %s failed: %s", pluginName, action, resp.Error)
	}
	return resp, nil
}
