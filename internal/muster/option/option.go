// Package option models the claimable options a session offers.
//
// An option set is resolved once at session creation from a definition
// (built-in preset or custom list) and is immutable afterwards.
package option

import "strings"

// Kind describes how a claim on an option is handled.
type Kind int

const (
	// KindUnspecified represents an invalid option kind value.
	KindUnspecified Kind = iota
	// KindResourceClaim indicates a named resource claim that runs the
	// interactive qualifier confirmation before it is recorded.
	KindResourceClaim
	// KindPureInterest indicates a headcount marker recorded immediately.
	KindPureInterest
	// KindInformational indicates an informational marker recorded
	// immediately; it carries no resource semantics.
	KindInformational
)

// String returns the stable storage label for a kind.
func (k Kind) String() string {
	switch k {
	case KindResourceClaim:
		return "resource_claim"
	case KindPureInterest:
		return "pure_interest"
	case KindInformational:
		return "informational"
	default:
		return "unspecified"
	}
}

// ParseKind maps a stable storage label back to a kind.
func ParseKind(value string) Kind {
	switch strings.TrimSpace(value) {
	case "resource_claim":
		return KindResourceClaim
	case "pure_interest":
		return KindPureInterest
	case "informational":
		return KindInformational
	default:
		return KindUnspecified
	}
}

// DisplayMeta carries presentation hints; the core passes it through to the
// renderer without interpreting it.
type DisplayMeta struct {
	Name  string `yaml:"name"`
	Emoji string `yaml:"emoji"`
}

// Option describes one claimable option within a session.
type Option struct {
	Key                 string      `yaml:"key"`
	Kind                Kind        `yaml:"-"`
	Display             DisplayMeta `yaml:"display"`
	QualifierCandidates []string    `yaml:"qualifiers"`
}

// Set is an immutable, ordered collection of options keyed by option key.
type Set struct {
	options []Option
	index   map[string]int
}

// Get returns the option for a key.
func (s Set) Get(key string) (Option, bool) {
	idx, ok := s.index[key]
	if !ok {
		return Option{}, false
	}
	return s.options[idx], true
}

// Keys returns the option keys in definition order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s.options))
	for _, opt := range s.options {
		keys = append(keys, opt.Key)
	}
	return keys
}

// All returns the options in definition order.
func (s Set) All() []Option {
	out := make([]Option, len(s.options))
	copy(out, s.options)
	return out
}

// Len returns the number of options in the set.
func (s Set) Len() int {
	return len(s.options)
}
