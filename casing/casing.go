// Package casing rewrites the keys of nested values to a target casing
// style. It recurses into plain mappings and sequences only; opaque values
// (times, funcs, structs, channels) pass through untouched.
package casing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Style is a target key-casing style.
type Style string

const (
	// Camel rewrites keys to camelCase.
	Camel Style = "camelCase"
	// Snake rewrites keys to snake_case.
	Snake Style = "snake_case"
	// Kebab rewrites keys to kebab-case.
	Kebab Style = "kebab-case"
	// Pascal rewrites keys to PascalCase.
	Pascal Style = "PascalCase"
	// None leaves keys unchanged.
	None Style = "none"
)

// ErrUnknownStyle is returned by ParseStyle for unrecognized input.
var ErrUnknownStyle = errors.New("casing: unknown style")

// ParseStyle maps config or flag input to a Style. The empty string means
// None.
func ParseStyle(value string) (Style, error) {
	switch strings.ToLower(value) {
	case "", "none":
		return None, nil
	case "camel", "camelcase":
		return Camel, nil
	case "snake", "snake_case":
		return Snake, nil
	case "kebab", "kebab-case":
		return Kebab, nil
	case "pascal", "pascalcase":
		return Pascal, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownStyle, value)
	}
}

// Key rewrites a single key to the target style. Words are split at "-",
// "_", whitespace, and letter-case boundaries; a run of uppercase letters
// is kept as one word unless its last letter begins a lowercased word
// ("HTTPServer" splits into "http" and "server"). The transform is lossy
// for such runs: round-tripping through two styles is not guaranteed to
// reproduce the original.
func Key(key string, style Style) string {
	if style == None {
		return key
	}

	words := splitWords(key)
	if len(words) == 0 {
		return key
	}

	switch style {
	case Snake:
		return strings.Join(words, "_")
	case Kebab:
		return strings.Join(words, "-")
	case Camel:
		var b strings.Builder
		b.WriteString(words[0])
		for _, word := range words[1:] {
			b.WriteString(capitalize(word))
		}

		return b.String()
	case Pascal:
		var b strings.Builder
		for _, word := range words {
			b.WriteString(capitalize(word))
		}

		return b.String()
	default:
		return key
	}
}

// Transform returns a structurally equivalent value whose mapping keys are
// rewritten to the target style. Sequences are transformed element-wise.
// A cyclic reference is returned as-is rather than recursed into, which
// preserves the cycle and leaves that branch's keys unchanged.
func Transform(value any, style Style) any {
	if style == None {
		return value
	}

	return transform(value, style, make(map[uintptr]struct{}))
}

func transform(value any, style Style, inProgress map[uintptr]struct{}) any {
	switch typed := value.(type) {
	case map[string]any:
		ptr := reflect.ValueOf(typed).Pointer()
		if _, busy := inProgress[ptr]; busy {
			return typed
		}
		inProgress[ptr] = struct{}{}
		defer delete(inProgress, ptr)

		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[Key(key, style)] = transform(val, style, inProgress)
		}

		return out
	case []any:
		if len(typed) == 0 {
			return typed
		}
		ptr := reflect.ValueOf(typed).Pointer()
		if _, busy := inProgress[ptr]; busy {
			return typed
		}
		inProgress[ptr] = struct{}{}
		defer delete(inProgress, ptr)

		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = transform(val, style, inProgress)
		}

		return out
	default:
		return value
	}
}

func splitWords(key string) []string {
	var words []string
	var current []rune
	runes := []rune(key)

	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	for i, r := range runes {
		switch {
		case r == '-' || r == '_' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r):
			if len(current) > 0 {
				prevUpper := unicode.IsUpper(current[len(current)-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if !prevUpper || nextLower {
					flush()
				}
			}
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()

	return words
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(word)
	runes[0] = unicode.ToUpper(runes[0])

	return string(runes)
}
