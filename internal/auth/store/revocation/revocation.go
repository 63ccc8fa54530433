// Package revocation stores the ids of tokens invalidated at logout until the
// tokens would have expired on their own.
package revocation

import "time"

// Clock returns the current time.
type Clock func() time.Time

// Entry is one token id to revoke.
type Entry struct {
	JTI string
	TTL time.Duration
}

// live drops entries without an id or whose token has already expired.
func live(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.JTI != "" && e.TTL > 0 {
			out = append(out, e)
		}
	}
	return out
}
