// Package continuation implements the compound cursor that carries one
// resume point per source through an aggregated paging session. The
// formatted string is opaque to clients; they only ever hand it back
// unchanged.
package continuation

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"
)

// Completed marks a source as fully drained. Once a source carries this
// sentinel it is never queried again for the session. Real continuations
// in this system are value-derived ("<sortValue>_<localId>") and can
// never collide with it.
const Completed = "COMPLETED"

// Combined maps source keys (blockchains, per-currency streams) to the
// continuation recorded for that source. A source absent from the map
// has not been started yet.
type Combined map[string]string

// Parse is total: an absent or malformed token yields an empty cursor,
// never an error, so callers always hold a valid starting point.
func Parse(raw string) Combined {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Combined{}
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return Combined{}
	}
	var entries map[string]string
	if err := json.Unmarshal(decoded, &entries); err != nil || entries == nil {
		return Combined{}
	}
	return Combined(entries)
}

// Format renders the cursor as an opaque token. An empty cursor formats
// to "" so a fully-unstarted session round-trips to "start everywhere".
func (c Combined) Format() string {
	if len(c) == 0 {
		return ""
	}
	raw, err := json.Marshal(map[string]string(c))
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Get returns the continuation recorded for a source. ok=false means the
// source has not been started; callers must treat that as "fetch from
// the beginning" and must check IsCompleted before fetching at all.
func (c Combined) Get(source string) (string, bool) {
	v, ok := c[source]
	if !ok || v == Completed {
		return "", false
	}
	return v, true
}

func (c Combined) IsCompleted(source string) bool {
	return c[source] == Completed
}

func (c Combined) Set(source, cont string) {
	c[source] = cont
}

func (c Combined) SetCompleted(source string) {
	c[source] = Completed
}

// AllCompleted reports whether every source in the cursor is drained.
// An empty cursor is not "all completed": nothing has been started.
func (c Combined) AllCompleted() bool {
	if len(c) == 0 {
		return false
	}
	for _, v := range c {
		if v != Completed {
			return false
		}
	}
	return true
}

// Sources lists the recorded source keys in deterministic order.
func (c Combined) Sources() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
