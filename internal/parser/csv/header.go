package csv

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeHeader canonicalizes header cells in place: BOM stripped from the
// first cell, surrounding space trimmed, NFC composed, lowercased, and inner
// spaces replaced by underscores. Empty cells become column<i>.
func NormalizeHeader(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}
	for i, h := range headers {
		h = norm.NFC.String(strings.TrimSpace(h))
		h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		if h == "" {
			h = PositionalName(i)
		}
		headers[i] = h
	}
	return headers
}

// PositionalName is the column name used for headerless input.
func PositionalName(i int) string { return "column" + strconv.Itoa(i) }

// Union merges header lists by name, keeping first-seen order. Later files
// that add columns append them; missing columns read as NULL.
func Union(headers ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, h := range headers {
		for _, c := range h {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
