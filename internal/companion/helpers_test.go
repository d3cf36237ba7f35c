// ABOUTME: Test helpers for the companion manager
// ABOUTME: Router core fixtures and fake companion module types
package companion

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
	"github.com/Resonate-Protocol/resonate-router/pkg/modargs"
)

type nopInstance struct{}

func (nopInstance) Done() {}

// fakeModule creates one sink per sink_name/sink_master pair and records the
// argument strings it was loaded with
type fakeModule struct {
	fail   bool
	noSink bool
	extra  string // optional second sink name suffix
	loaded []string
}

func (f *fakeModule) Description() string { return "fake companion" }
func (f *fakeModule) Usage() string       { return "sink_name=<name> sink_master=<sink>" }

func (f *fakeModule) Init(m *router.ModuleContext) (router.ModuleInstance, error) {
	f.loaded = append(f.loaded, m.Argument())

	if f.fail {
		return nil, errors.New("refused by test")
	}
	if f.noSink {
		return nopInstance{}, nil
	}

	args, err := modargs.Parse(m.Argument(), nil)
	if err != nil {
		return nil, err
	}

	name := args.Get("sink_name", "")
	if _, err := m.AddSink(router.SinkConfig{Name: name, Master: args.Get("sink_master", "")}); err != nil {
		return nil, err
	}
	if f.extra != "" {
		if _, err := m.AddSink(router.SinkConfig{Name: name + f.extra}); err != nil {
			return nil, err
		}
	}
	return nopInstance{}, nil
}

type fixture struct {
	t        *testing.T
	core     *router.Core
	logs     *bytes.Buffer
	logger   *log.Logger
	echo     *fakeModule
	broken   *fakeModule
	sinkless *fakeModule
	dual     *fakeModule
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	f := &fixture{
		t:        t,
		core:     router.NewCore(router.Config{Logger: logger}),
		logs:     &buf,
		logger:   logger,
		echo:     &fakeModule{},
		broken:   &fakeModule{fail: true},
		sinkless: &fakeModule{noSink: true},
		dual:     &fakeModule{extra: ".b"},
	}

	f.core.RegisterModuleType("echo-cancel", f.echo)
	f.core.RegisterModuleType("broken", f.broken)
	f.core.RegisterModuleType("sinkless", f.sinkless)
	f.core.RegisterModuleType("dual", f.dual)
	return f
}

func (f *fixture) addHardware(name string) uint32 {
	f.t.Helper()
	idx, err := f.core.AddSink(router.SinkConfig{Name: name, Flags: host.SinkHardware})
	if err != nil {
		f.t.Fatalf("failed to add hardware sink %s: %v", name, err)
	}
	return idx
}

func (f *fixture) addVirtual(name string) uint32 {
	f.t.Helper()
	idx, err := f.core.AddSink(router.SinkConfig{Name: name})
	if err != nil {
		f.t.Fatalf("failed to add virtual sink %s: %v", name, err)
	}
	return idx
}

func (f *fixture) start(argument string) *Manager {
	f.t.Helper()

	var m *Manager
	var err error
	f.core.Batch(func() {
		m, err = Init(f.core, argument, Options{Logger: f.logger, Debug: true})
	})
	if err != nil {
		f.t.Fatalf("failed to start manager: %v", err)
	}
	f.t.Cleanup(m.Done)
	return m
}

func (f *fixture) sink(name string) host.Sink {
	f.t.Helper()
	s, err := f.core.SinkByName(name)
	if err != nil {
		f.t.Fatalf("sink %s: %v", name, err)
	}
	return s
}

func (f *fixture) defaultName() string {
	s, ok := f.core.DefaultSink()
	if !ok {
		return ""
	}
	return s.Name
}

func (f *fixture) setDefault(name string) {
	f.t.Helper()
	if err := f.core.SetConfiguredDefaultSink(name); err != nil {
		f.t.Fatalf("failed to set default %s: %v", name, err)
	}
}

func (f *fixture) logCount(substr string) int {
	return strings.Count(f.logs.String(), substr)
}
