// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/williamokano/dump_dbs/pkg/runner"
)

// MockRunner is a mock implementation of the runner.Runner interface
type MockRunner struct {
	mock.Mock
}

// Run provides a mock function with given fields: ctx, cmd
func (m *MockRunner) Run(ctx context.Context, cmd runner.Command) error {
	ret := m.Called(ctx, cmd)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, runner.Command) error); ok {
		r0 = rf(ctx, cmd)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockRunner creates a new instance of MockRunner. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRunner {
	m := &MockRunner{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// CommandNamed matches a runner.Command by tool name
func CommandNamed(name string) interface{} {
	return mock.MatchedBy(func(cmd runner.Command) bool { return cmd.Name == name })
}
