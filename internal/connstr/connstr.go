// Package connstr reads and writes ODBC connection strings.
//
// A connection string is a `;`-separated list of `keyword=value` pairs.
// Keywords are matched case-insensitively. A value may be wrapped in braces,
// in which case it can carry `;`, `=` and white space verbatim:
//
//	Driver={Elasticsearch Driver};Server=localhost;Port=9200;CloudID={name:abc=}
//
// Attributes keeps the pairs in their original order and remembers the
// first spelling of each keyword, so a parse/modify/write cycle only touches
// what the caller changed.
package connstr

import (
	"strings"
)

// Pair is a single keyword/value attribute.
type Pair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`

	// Braced forces the value to be written inside braces even when it
	// contains no character that requires them.
	Braced bool `json:"braced,omitempty" yaml:"braced,omitempty"`
}

// Attributes is an ordered, case-insensitive keyword/value collection.
// The zero value is ready to use.
type Attributes struct {
	pairs []Pair
}

// New returns an empty collection.
func New() *Attributes {
	return &Attributes{}
}

// FromPairs builds a collection from pairs, later duplicates overriding
// earlier ones.
func FromPairs(pairs ...Pair) *Attributes {
	a := New()
	for _, p := range pairs {
		a.SetPair(p)
	}
	return a
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	return len(a.pairs)
}

// Get returns the value stored under key.
func (a *Attributes) Get(key string) (string, bool) {
	if i := a.index(key); i >= 0 {
		return a.pairs[i].Value, true
	}
	return "", false
}

// Has reports whether key is present.
func (a *Attributes) Has(key string) bool {
	return a.index(key) >= 0
}

// Set stores value under key. An existing attribute keeps its position and
// spelling; a new one is appended.
func (a *Attributes) Set(key, value string) {
	a.SetPair(Pair{Key: key, Value: value})
}

// SetPair is Set with explicit brace handling.
func (a *Attributes) SetPair(p Pair) {
	if i := a.index(p.Key); i >= 0 {
		a.pairs[i].Value = p.Value
		a.pairs[i].Braced = p.Braced
		return
	}
	a.pairs = append(a.pairs, p)
}

// Remove deletes key and reports whether it was present.
func (a *Attributes) Remove(key string) bool {
	i := a.index(key)
	if i < 0 {
		return false
	}
	a.pairs = append(a.pairs[:i], a.pairs[i+1:]...)
	return true
}

// Clear drops every attribute.
func (a *Attributes) Clear() {
	a.pairs = nil
}

// Pairs returns a copy of the attributes in order.
func (a *Attributes) Pairs() []Pair {
	if len(a.pairs) == 0 {
		return nil
	}
	out := make([]Pair, len(a.pairs))
	copy(out, a.pairs)
	return out
}

// Map returns the attributes keyed by lower-cased keyword.
func (a *Attributes) Map() map[string]string {
	m := make(map[string]string, len(a.pairs))
	for _, p := range a.pairs {
		m[strings.ToLower(p.Key)] = p.Value
	}
	return m
}

// String serializes the attributes as a connection string.
func (a *Attributes) String() string {
	return Write(a.pairs)
}

func (a *Attributes) index(key string) int {
	for i, p := range a.pairs {
		if strings.EqualFold(p.Key, key) {
			return i
		}
	}
	return -1
}

// Write serializes pairs as `key=value` joined by `;`. Values are wrapped in
// braces when they contain white space, `=` or `;`, when they start with
// `{`, or when the pair asks for it.
func Write(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		if p.Braced || NeedsBraces(p.Value) {
			b.WriteByte('{')
			b.WriteString(p.Value)
			b.WriteByte('}')
		} else {
			b.WriteString(p.Value)
		}
	}
	return b.String()
}

// NeedsBraces reports whether value must be brace-quoted to survive a
// round trip through Parse.
func NeedsBraces(value string) bool {
	if strings.HasPrefix(value, "{") {
		return true
	}
	return strings.ContainsAny(value, " \t\r\n=;")
}

// StripBraces removes one pair of enclosing braces, if present.
func StripBraces(s string) string {
	if len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}' {
		return s[1 : len(s)-1]
	}
	return s
}
