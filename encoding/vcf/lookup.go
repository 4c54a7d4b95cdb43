package vcf

import "strings"

// Lookup searches rec for the value of the annotation called name. It is a
// best-effort textual search with no knowledge of which column is the real
// FORMAT or INFO column. Fields are visited right to left, so sample columns
// are seen before INFO in the usual layout. For each field two encodings are
// tried, and the first success anywhere ends the search:
//
//  1. FORMAT/SAMPLE pairing, e.g. "GT:AO" followed by "0/1:23". The field
//     matches if name is one of its ':'-separated tokens. The value is the
//     token at the same index in the next field.
//
//  2. INFO list, e.g. "DP=10;AF=0.5". The field matches if "name=" appears at
//     the start of the field or right after a ';'. The value runs up to the
//     next ';'.
//
// A token is delimited only by ':' (or ';') and the field edges, which stand
// in for the tab separator. Quotes, commas and spaces are not boundaries.
//
// If a pairing match finds no usable value (there is no next field, or the
// next field has too few tokens), the field counts as not found and the scan
// continues leftward without trying the INFO encoding on it.
func Lookup(rec Record, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for i := len(rec) - 1; i >= 0; i-- {
		field := rec[i]
		if idx := tokenIndex(field, name); idx >= 0 {
			if i+1 < len(rec) {
				values := strings.Split(rec[i+1], ":")
				if idx < len(values) {
					return values[idx], true
				}
			}
			continue
		}
		if v, ok := infoValue(field, name); ok {
			return v, true
		}
	}
	return "", false
}

// tokenIndex returns the index of name among the ':'-separated tokens of
// field, or -1.
func tokenIndex(field, name string) int {
	if !strings.Contains(field, name) {
		return -1
	}
	for i, tok := range strings.Split(field, ":") {
		if tok == name {
			return i
		}
	}
	return -1
}

// infoValue extracts the value of "name=" from a ';'-separated list.
func infoValue(field, name string) (string, bool) {
	marker := name + "="
	var start int
	switch {
	case strings.HasPrefix(field, marker):
		start = len(marker)
	default:
		i := strings.Index(field, ";"+marker)
		if i < 0 {
			return "", false
		}
		start = i + 1 + len(marker)
	}
	v := field[start:]
	if end := strings.IndexByte(v, ';'); end >= 0 {
		v = v[:end]
	}
	return v, true
}

// InfoKeys returns the key of each ';'-separated INFO entry, i.e. the text
// before its first '='. Entries without '=' are flags and yield the whole
// entry.
func InfoKeys(info string) []string {
	entries := strings.Split(info, ";")
	keys := make([]string, len(entries))
	for i, e := range entries {
		if j := strings.IndexByte(e, '='); j >= 0 {
			e = e[:j]
		}
		keys[i] = e
	}
	return keys
}
