// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package services

import (
	"context"
)

// ContextRunner is satisfied by components whose RunWithContext blocks until
// the context is canceled: *websocket.Hub, *analytics.Pipeline,
// *analytics.Pruner, *health.Checker and *backup.Manager.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService supervises a ContextRunner under a fixed name.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's logs.
func (s *RunnerService) String() string {
	return s.name
}

// FuncService supervises a plain function, for jobs that take extra
// arguments such as auth.Service.RunCleanup.
type FuncService struct {
	fn   func(ctx context.Context) error
	name string
}

// NewFuncService wraps fn.
func NewFuncService(name string, fn func(ctx context.Context) error) *FuncService {
	return &FuncService{fn: fn, name: name}
}

// Serve implements suture.Service.
func (s *FuncService) Serve(ctx context.Context) error {
	return s.fn(ctx)
}

// String implements fmt.Stringer for suture's logs.
func (s *FuncService) String() string {
	return s.name
}
