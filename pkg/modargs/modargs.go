// ABOUTME: Parser for module argument strings
// ABOUTME: Handles key=value pairs with quoting and typed accessors
package modargs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrSyntax is returned for malformed argument strings
	ErrSyntax = errors.New("modargs: syntax error")

	// ErrUnknownKey is returned when a key is not in the valid set
	ErrUnknownKey = errors.New("modargs: unknown key")

	// ErrDuplicateKey is returned when a key appears twice
	ErrDuplicateKey = errors.New("modargs: duplicate key")

	// ErrInvalidValue is returned when a typed accessor cannot parse a value
	ErrInvalidValue = errors.New("modargs: invalid value")
)

// Args holds parsed module arguments
type Args struct {
	values map[string]string
	order  []string
}

type parseState int

const (
	stateKey parseState = iota
	stateValueStart
	stateValueSimple
	stateValueSimpleEscape
	stateValueDoubleQuotes
	stateValueDoubleQuotesEscape
	stateValueTickQuotes
	stateValueTickQuotesEscape
	stateWhitespace
)

// Parse splits argument into key/value pairs. When valid is non-nil every key
// must be one of its entries. Values may be bare, "double quoted" or
// 'single quoted'; a backslash escapes the next character.
func Parse(argument string, valid []string) (*Args, error) {
	a := &Args{values: make(map[string]string)}

	var key, value strings.Builder
	state := stateWhitespace

	commit := func() error {
		k := key.String()
		if valid != nil && !contains(valid, k) {
			return fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
		if _, exists := a.values[k]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, k)
		}
		a.values[k] = value.String()
		a.order = append(a.order, k)
		key.Reset()
		value.Reset()
		return nil
	}

	for i, r := range argument {
		switch state {
		case stateWhitespace:
			if r == '=' {
				return nil, fmt.Errorf("%w: empty key at offset %d", ErrSyntax, i)
			}
			if !isSpace(r) {
				key.WriteRune(r)
				state = stateKey
			}

		case stateKey:
			switch {
			case r == '=':
				state = stateValueStart
			case isSpace(r):
				return nil, fmt.Errorf("%w: key %q has no value", ErrSyntax, key.String())
			default:
				key.WriteRune(r)
			}

		case stateValueStart:
			switch {
			case r == '\'':
				state = stateValueTickQuotes
			case r == '"':
				state = stateValueDoubleQuotes
			case isSpace(r):
				if err := commit(); err != nil {
					return nil, err
				}
				state = stateWhitespace
			case r == '\\':
				state = stateValueSimpleEscape
			default:
				value.WriteRune(r)
				state = stateValueSimple
			}

		case stateValueSimple:
			switch {
			case isSpace(r):
				if err := commit(); err != nil {
					return nil, err
				}
				state = stateWhitespace
			case r == '\\':
				state = stateValueSimpleEscape
			default:
				value.WriteRune(r)
			}

		case stateValueSimpleEscape:
			value.WriteRune(r)
			state = stateValueSimple

		case stateValueDoubleQuotes:
			switch r {
			case '"':
				if err := commit(); err != nil {
					return nil, err
				}
				state = stateWhitespace
			case '\\':
				state = stateValueDoubleQuotesEscape
			default:
				value.WriteRune(r)
			}

		case stateValueDoubleQuotesEscape:
			value.WriteRune(r)
			state = stateValueDoubleQuotes

		case stateValueTickQuotes:
			switch r {
			case '\'':
				if err := commit(); err != nil {
					return nil, err
				}
				state = stateWhitespace
			case '\\':
				state = stateValueTickQuotesEscape
			default:
				value.WriteRune(r)
			}

		case stateValueTickQuotesEscape:
			value.WriteRune(r)
			state = stateValueTickQuotes
		}
	}

	switch state {
	case stateValueStart, stateValueSimple:
		if err := commit(); err != nil {
			return nil, err
		}
	case stateWhitespace:
	case stateKey:
		return nil, fmt.Errorf("%w: key %q has no value", ErrSyntax, key.String())
	default:
		return nil, fmt.Errorf("%w: unterminated value for key %q", ErrSyntax, key.String())
	}

	return a, nil
}

// Get returns the value for key or def when unset
func (a *Args) Get(key, def string) string {
	if v, ok := a.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether key was given
func (a *Args) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Keys returns keys in the order they appeared
func (a *Args) Keys() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// GetBool returns the boolean value for key or def when unset
func (a *Args) GetBool(key string, def bool) (bool, error) {
	v, ok := a.values[key]
	if !ok {
		return def, nil
	}
	b, err := ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// GetUint32 returns the unsigned value for key or def when unset
func (a *Args) GetUint32(key string, def uint32) (uint32, error) {
	v, ok := a.values[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return uint32(n), nil
}

// GetFloat returns the float value for key or def when unset
func (a *Args) GetFloat(key string, def float64) (float64, error) {
	v, ok := a.values[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return f, nil
}

// ParseBool accepts the boolean spellings used in module arguments
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "y", "t", "yes", "true", "on":
		return true, nil
	case "0", "n", "f", "no", "false", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
