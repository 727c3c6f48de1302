// Package filter narrows the alert collection to what the operator asked
// to see.
package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config is the set of user-chosen constraints. The zero value admits every
// alert.
//
// MinSeverity is a threshold on the severity number, not on threat level:
// an alert passes when its severity is set and severity <= MinSeverity.
// Because 1 is High, MinSeverity=2 keeps High and Medium and drops Low and
// unclassified records. 0 disables the clause.
type Config struct {
	MinSeverity      int
	AlertsOnly       bool
	Protocols        ProtocolSet
	Port             *int
	AddressSubstring string
	TimeRange        TimeRange
}

// TimeRange bounds alert timestamps. Both bounds are inclusive and either
// may be nil.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

// IsSet reports whether any bound is configured.
func (r TimeRange) IsSet() bool {
	return r.Start != nil || r.End != nil
}

// Default returns the identity configuration.
func Default() Config {
	return Config{Protocols: ProtocolSet{}}
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.MinSeverity < 0 || c.MinSeverity > 3 {
		return fmt.Errorf("min severity must be between 0 and 3, got %d", c.MinSeverity)
	}
	if c.Port != nil && (*c.Port < 0 || *c.Port > 65535) {
		return fmt.Errorf("port must be between 0 and 65535, got %d", *c.Port)
	}
	if c.TimeRange.Start != nil && c.TimeRange.End != nil && c.TimeRange.Start.After(*c.TimeRange.End) {
		return fmt.Errorf("time range start %s is after end %s",
			c.TimeRange.Start.Format(time.RFC3339), c.TimeRange.End.Format(time.RFC3339))
	}
	return nil
}

// Clone returns a copy that shares no mutable state with c.
func (c Config) Clone() Config {
	out := c
	out.Protocols = c.Protocols.Clone()
	if c.Port != nil {
		p := *c.Port
		out.Port = &p
	}
	if c.TimeRange.Start != nil {
		s := *c.TimeRange.Start
		out.TimeRange.Start = &s
	}
	if c.TimeRange.End != nil {
		e := *c.TimeRange.End
		out.TimeRange.End = &e
	}
	return out
}

// ProtocolSet is a set of protocol tokens. An empty set places no
// restriction.
type ProtocolSet map[string]struct{}

// NewProtocolSet builds a set from tokens.
func NewProtocolSet(protocols ...string) ProtocolSet {
	s := make(ProtocolSet, len(protocols))
	for _, p := range protocols {
		s.Add(p)
	}
	return s
}

func canonicalProtocol(p string) string {
	return strings.ToUpper(strings.TrimSpace(p))
}

// Add inserts p.
func (s ProtocolSet) Add(p string) {
	if p = canonicalProtocol(p); p != "" {
		s[p] = struct{}{}
	}
}

// Remove deletes p.
func (s ProtocolSet) Remove(p string) {
	delete(s, canonicalProtocol(p))
}

// Toggle flips membership of p and returns the new membership.
func (s ProtocolSet) Toggle(p string) bool {
	if s.Has(p) {
		s.Remove(p)
		return false
	}
	s.Add(p)
	return true
}

// Has reports membership of p.
func (s ProtocolSet) Has(p string) bool {
	_, ok := s[canonicalProtocol(p)]
	return ok
}

// Len returns the number of members.
func (s ProtocolSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s ProtocolSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clone copies the set.
func (s ProtocolSet) Clone() ProtocolSet {
	out := make(ProtocolSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}
