// ABOUTME: Tests for module argument parsing
// ABOUTME: Covers quoting, escapes, validation and typed accessors
package modargs

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		argument string
		want     map[string]string
	}{
		{
			name:     "empty",
			argument: "",
			want:     map[string]string{},
		},
		{
			name:     "simple pairs",
			argument: "sink_name=foo sink_master=bar",
			want:     map[string]string{"sink_name": "foo", "sink_master": "bar"},
		},
		{
			name:     "double quoted value with spaces",
			argument: `module_args="sink_name=%m.echo sink_master=%m"`,
			want:     map[string]string{"module_args": "sink_name=%m.echo sink_master=%m"},
		},
		{
			name:     "tick quoted value",
			argument: `a='x y' b=z`,
			want:     map[string]string{"a": "x y", "b": "z"},
		},
		{
			name:     "escaped quote",
			argument: `a="say \"hi\""`,
			want:     map[string]string{"a": `say "hi"`},
		},
		{
			name:     "escaped space in bare value",
			argument: `a=x\ y`,
			want:     map[string]string{"a": "x y"},
		},
		{
			name:     "empty value",
			argument: "a= b=1",
			want:     map[string]string{"a": "", "b": "1"},
		},
		{
			name:     "surrounding whitespace",
			argument: "  a=1\t\tb=2  ",
			want:     map[string]string{"a": "1", "b": "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := Parse(tt.argument, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(args.Keys()) != len(tt.want) {
				t.Fatalf("expected %d keys, got %v", len(tt.want), args.Keys())
			}
			for k, v := range tt.want {
				if got := args.Get(k, "<unset>"); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		argument string
		valid    []string
		wantErr  error
	}{
		{"key without value", "lonely", nil, ErrSyntax},
		{"key followed by space", "a b=1", nil, ErrSyntax},
		{"empty key", "=1", nil, ErrSyntax},
		{"unterminated double quote", `a="open`, nil, ErrSyntax},
		{"unterminated tick quote", `a='open`, nil, ErrSyntax},
		{"unknown key", "a=1 z=2", []string{"a"}, ErrUnknownKey},
		{"duplicate key", "a=1 a=2", nil, ErrDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.argument, tt.valid)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestKeysKeepOrder(t *testing.T) {
	args, err := Parse("c=1 a=2 b=3", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keys := args.Keys()
	want := []string{"c", "a", "b"}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestGetBool(t *testing.T) {
	args, err := Parse("a=yes b=Off c=1 d=maybe", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, err := args.GetBool("a", false); err != nil || !v {
		t.Errorf("a: got %v, %v", v, err)
	}
	if v, err := args.GetBool("b", true); err != nil || v {
		t.Errorf("b: got %v, %v", v, err)
	}
	if v, err := args.GetBool("c", false); err != nil || !v {
		t.Errorf("c: got %v, %v", v, err)
	}
	if v, err := args.GetBool("missing", true); err != nil || !v {
		t.Errorf("missing: expected default true, got %v, %v", v, err)
	}
	if _, err := args.GetBool("d", false); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("d: expected ErrInvalidValue, got %v", err)
	}
}

func TestGetNumbers(t *testing.T) {
	args, err := Parse("rate=44100 gain=-3.5 bad=x", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, err := args.GetUint32("rate", 0); err != nil || v != 44100 {
		t.Errorf("rate: got %d, %v", v, err)
	}
	if v, err := args.GetFloat("gain", 0); err != nil || v != -3.5 {
		t.Errorf("gain: got %f, %v", v, err)
	}
	if _, err := args.GetUint32("bad", 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("bad uint: expected ErrInvalidValue, got %v", err)
	}
	if _, err := args.GetFloat("bad", 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("bad float: expected ErrInvalidValue, got %v", err)
	}
	if v, _ := args.GetUint32("missing", 9); v != 9 {
		t.Errorf("missing: expected default 9, got %d", v)
	}
}
