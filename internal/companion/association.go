// ABOUTME: Bidirectional sink/module association stored in proplists
// ABOUTME: Recording, parsing and first-match scans over the sink list
package companion

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

const (
	// SinkAssociatedModuleKey is set on a hardware sink to its companion's module index
	SinkAssociatedModuleKey = "X-load-module-per-hardware-sink-assoc-module"

	// ModuleAssociatedSinkKey is set on a companion module to its hardware sink's index
	ModuleAssociatedSinkKey = "X-load-module-per-hardware-sink-assoc-sink"
)

// ErrMalformedAssociation is returned when an association value is not an index
var ErrMalformedAssociation = errors.New("companion: malformed association value")

// record writes both sides of the association, sink side first
func record(core host.Core, sinkIndex, moduleIndex uint32) error {
	if err := core.SetSinkProperty(sinkIndex, SinkAssociatedModuleKey, formatIndex(moduleIndex)); err != nil {
		return fmt.Errorf("failed to annotate sink %d: %w", sinkIndex, err)
	}
	if err := core.SetModuleProperty(moduleIndex, ModuleAssociatedSinkKey, formatIndex(sinkIndex)); err != nil {
		return fmt.Errorf("failed to annotate module %d: %w", moduleIndex, err)
	}
	return nil
}

// AssociatedModule returns the companion module index recorded on a sink.
// ok is false when the sink carries no association.
func AssociatedModule(s host.Sink) (index uint32, ok bool, err error) {
	return parseAssociation(s.Proplist, SinkAssociatedModuleKey)
}

// AssociatedSink returns the hardware sink index recorded on a companion module
func AssociatedSink(m host.Module) (index uint32, ok bool, err error) {
	return parseAssociation(m.Proplist, ModuleAssociatedSinkKey)
}

// FirstSinkOwnedBy returns the first sink, in the order given, owned by the
// module. Callers pass host.Core.Sinks() so the first match is the lowest index.
func FirstSinkOwnedBy(sinks []host.Sink, moduleIndex uint32) (host.Sink, bool) {
	for _, s := range sinks {
		if s.Owner == moduleIndex {
			return s, true
		}
	}
	return host.Sink{}, false
}

func parseAssociation(p host.Proplist, key string) (uint32, bool, error) {
	v, ok := p.Get(key)
	if !ok {
		return host.InvalidIndex, false, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || uint32(n) == host.InvalidIndex {
		return host.InvalidIndex, true, fmt.Errorf("%w: %s=%q", ErrMalformedAssociation, key, v)
	}
	return uint32(n), true, nil
}

func formatIndex(i uint32) string {
	return strconv.FormatUint(uint64(i), 10)
}
