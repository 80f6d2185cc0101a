// Package jsonptr implements the JSON Pointer syntax (RFC 6901) used to
// address values inside configuration documents.
//
// Validation diagnostics report the location of a failure as a pointer
// ("/roster/3/username"), and the CLI accepts pointers wherever a nested key
// is expected ("/backend/host").
//
// Reference: https://tools.ietf.org/html/rfc6901
package jsonptr

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPointer is returned by Parse for a pointer that is neither empty
// nor starts with "/".
var ErrInvalidPointer = errors.New("invalid JSON Pointer: must be empty or start with '/'")

var (
	escaper   = strings.NewReplacer("~", "~0", "/", "~1")
	unescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// Escape encodes a single reference token: "~" becomes "~0" and "/" becomes "~1".
func Escape(token string) string {
	return escaper.Replace(token)
}

// Unescape decodes a single reference token produced by Escape.
func Unescape(token string) string {
	return unescaper.Replace(token)
}

// Build joins reference tokens into a pointer. Integer tokens are rendered
// as array indices.
//
//	Build("roster", 0, "username") -> "/roster/0/username"
//	Build()                        -> ""
func Build(tokens ...any) string {
	if len(tokens) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, token := range tokens {
		sb.WriteByte('/')
		switch v := token.(type) {
		case string:
			sb.WriteString(Escape(v))
		case int:
			sb.WriteString(strconv.Itoa(v))
		case int64:
			sb.WriteString(strconv.FormatInt(v, 10))
		default:
			sb.WriteString(Escape(toString(v)))
		}
	}
	return sb.String()
}

// Parse splits a pointer into unescaped reference tokens. The empty pointer
// refers to the whole document and yields no tokens.
func Parse(pointer string) ([]string, error) {
	if pointer == "" {
		return []string{}, nil
	}
	if pointer[0] != '/' {
		return nil, ErrInvalidPointer
	}

	parts := strings.Split(pointer[1:], "/")
	for i, part := range parts {
		parts[i] = Unescape(part)
	}
	return parts, nil
}

// Append adds escaped tokens to an existing pointer.
//
//	Append("/roster", 2, "name") -> "/roster/2/name"
func Append(base string, tokens ...any) string {
	return base + Build(tokens...)
}

func toString(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	switch n := v.(type) {
	case uint:
		return strconv.FormatUint(uint64(n), 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	case int32:
		return strconv.FormatInt(int64(n), 10)
	}
	return ""
}
