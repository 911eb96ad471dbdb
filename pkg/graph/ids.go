package graph

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

var nonIdentifier = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// ContentID returns a deterministic lowercase hex digest of the UTF-8
// bytes of text. The same input always yields the same ID, which keeps
// re-ingestion and the on-disk extraction cache idempotent.
func ContentID(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CanonicalName normalizes free text into a graph-safe identifier token:
// the text is split on spaces, hyphens and underscores, each token is
// lowercased and prefixed with an underscore if it starts with a digit,
// everything outside [A-Za-z0-9_] is stripped, and the result is prefixed
// with an underscore if it still starts with a digit.
//
// The function is pure and total; empty input (or input with no usable
// characters) yields "".
func CanonicalName(text string) string {
	if text == "" {
		return ""
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})

	var b strings.Builder
	for _, word := range words {
		if word[0] >= '0' && word[0] <= '9' {
			b.WriteByte('_')
		}
		b.WriteString(strings.ToLower(word))
	}

	name := nonIdentifier.ReplaceAllString(b.String(), "")
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}
