// ABOUTME: String property lists attached to sinks and modules
// ABOUTME: Generic metadata visible to every module and introspection tool
package host

import (
	"fmt"
	"sort"
)

// Proplist is a string key/value metadata bag
type Proplist map[string]string

// Get returns the value for key and whether it was set
func (p Proplist) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p[key]
	return v, ok
}

// Set stores value under key
func (p Proplist) Set(key, value string) {
	p[key] = value
}

// Setf stores a formatted value under key
func (p Proplist) Setf(key, format string, args ...interface{}) {
	p[key] = fmt.Sprintf(format, args...)
}

// Clone returns an independent copy
func (p Proplist) Clone() Proplist {
	c := make(Proplist, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Keys returns the keys in sorted order
func (p Proplist) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
