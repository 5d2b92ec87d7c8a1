// Package contract runs shared behavioural checks against any adapter.
package contract

import (
	"context"
	"testing"
	"time"

	"lookout/internal/lookup/adapters"
	"lookout/internal/lookup/models"
)

// ContractTest defines one adapter contract case.
type ContractTest struct {
	Name          string
	Adapter       adapters.Adapter
	Identifier    string
	ExpectSuccess bool
	ExpectStatus  models.LookupStatus
	ValidateFunc  func(resp adapters.Response) error
}

// ContractSuite is a collection of contract tests for one adapter kind.
type ContractSuite struct {
	Kind    adapters.Kind
	Timeout time.Duration
	Tests   []ContractTest
}

// Run executes all contract tests in the suite.
func (s *ContractSuite) Run(t *testing.T) {
	t.Helper()
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if test.Adapter.Kind() != s.Kind {
				t.Fatalf("expected kind %s, got %s", s.Kind, test.Adapter.Kind())
			}

			resp, err := test.Adapter.Invoke(ctx, test.Identifier)
			if err != nil {
				t.Fatalf("adapter invoke failed: %v", err)
			}

			if resp.Source != s.Kind.String() {
				t.Errorf("expected source %s, got %s", s.Kind, resp.Source)
			}
			if resp.Success != test.ExpectSuccess {
				t.Errorf("expected success=%v, got %v (error %q)", test.ExpectSuccess, resp.Success, resp.Error)
			}
			if !resp.Success && resp.Error == "" {
				t.Error("failed response without error message")
			}
			if resp.Success && resp.Error != "" {
				t.Errorf("successful response carries error %q", resp.Error)
			}
			if test.ExpectStatus != "" && resp.Status != test.ExpectStatus {
				t.Errorf("expected status %s, got %s", test.ExpectStatus, resp.Status)
			}

			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(resp); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}
}
