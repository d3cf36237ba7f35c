// ABOUTME: Test helpers for the router core
// ABOUTME: A configurable module type and a quiet core constructor
package router

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

func newTestCore(t *testing.T) (*Core, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewCore(Config{Debug: true, Logger: log.New(&buf, "", 0)}), &buf
}

func mustAdd(t *testing.T, c *Core, cfg SinkConfig) uint32 {
	t.Helper()
	idx, err := c.AddSink(cfg)
	if err != nil {
		t.Fatalf("failed to add sink %s: %v", cfg.Name, err)
	}
	return idx
}

type testInstance struct {
	done *int
}

func (i testInstance) Done() { *i.done++ }

// testModule adds one sink named after its argument and optionally fails
// after doing so
type testModule struct {
	fail  bool
	hook  bool
	done  int
	ctxs  []*ModuleContext
	fired int
}

func (m *testModule) Description() string { return "test module" }
func (m *testModule) Usage() string       { return "<sink name>" }

func (m *testModule) Init(ctx *ModuleContext) (ModuleInstance, error) {
	m.ctxs = append(m.ctxs, ctx)

	if ctx.Argument() != "" {
		if _, err := ctx.AddSink(SinkConfig{Name: ctx.Argument()}); err != nil {
			return nil, err
		}
	}
	if m.hook {
		ctx.HookConnect(host.HookSinkPut, host.PriorityNormal, func(host.Sink) host.HookResult {
			m.fired++
			return host.HookOK
		})
	}
	if m.fail {
		return nil, errors.New("init refused")
	}
	return testInstance{done: &m.done}, nil
}

func fmtSlice(s []string) string {
	return fmt.Sprint(s)
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
