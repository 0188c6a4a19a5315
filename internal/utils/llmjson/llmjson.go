// Package llmjson pulls JSON payloads out of free-form model output.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNoJSON is returned when the text holds no balanced object or array.
var ErrNoJSON = errors.New("no JSON object or array found")

// ErrNoPayload is returned by ExtractWhere when spans decode but none is
// accepted.
var ErrNoPayload = errors.New("no JSON span carries the expected payload")

var invisible = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u200e", "",
	"\u200f", "",
	"\ufeff", "",
	"\x00", "",
)

// Span returns the first balanced {...} or [...] span in text. Brackets
// inside JSON strings are ignored.
func Span(text string) (string, bool) {
	found := spans(text, 1)
	if len(found) == 0 {
		return "", false
	}
	return found[0], true
}

// Extract unmarshals the first balanced span that decodes into dest.
// Later spans are tried when an earlier one is not valid JSON, so a stray
// "[1]" in leading prose does not hide the real payload.
func Extract(text string, dest any) error {
	return ExtractWhere(text, dest, nil)
}

// ExtractWhere is Extract with an acceptance check run after each decode.
// A span that decodes but fails accept is discarded, dest is zeroed, and the
// next span is tried. dest must be a non-nil pointer.
func ExtractWhere(text string, dest any, accept func() bool) error {
	text = invisible.Replace(text)
	candidates := spans(text, 8)
	if len(candidates) == 0 {
		return ErrNoJSON
	}
	var firstErr error
	decoded := false
	for _, c := range candidates {
		reset(dest)
		err := json.Unmarshal([]byte(c), dest)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if accept == nil || accept() {
			return nil
		}
		decoded = true
	}
	reset(dest)
	if decoded {
		return ErrNoPayload
	}
	return fmt.Errorf("invalid JSON payload: %w", firstErr)
}

func reset(dest any) {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v.Elem().Set(reflect.Zero(v.Elem().Type()))
}

func spans(text string, limit int) []string {
	var out []string
	for i := 0; i < len(text) && len(out) < limit; i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		end := matchClose(text, i)
		if end < 0 {
			continue
		}
		out = append(out, text[i:end+1])
		i = end
	}
	return out
}

// matchClose returns the index closing the bracket at start, or -1.
func matchClose(text string, start int) int {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
