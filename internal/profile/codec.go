package profile

import (
	"strings"

	"github.com/koustreak/dsneditor/internal/connstr"
)

// Decode parses a connection string into a Profile. Missing keywords take
// their defaults and malformed values fall back to them; keywords outside
// the schema are kept in Extra. The only error is a syntactically broken
// string (errs.ErrKindParseFailed).
func Decode(raw string) (*Profile, error) {
	attrs, err := connstr.Parse(raw)
	if err != nil {
		return nil, err
	}
	return FromAttributes(attrs), nil
}

// FromAttributes builds a Profile from already parsed attributes.
func FromAttributes(attrs *connstr.Attributes) *Profile {
	p := Default()
	used := make(map[string]bool)

	for _, f := range Schema {
		pair, ok := find(attrs, f)
		if !ok {
			continue
		}
		used[strings.ToLower(pair.Key)] = true
		// a malformed value keeps the default
		_ = f.Set(p, pair.Value)
	}

	for _, pair := range attrs.Pairs() {
		if used[strings.ToLower(pair.Key)] {
			continue
		}
		if _, known := Lookup(pair.Key); known {
			// alias shadowed by the primary keyword
			continue
		}
		p.Extra = append(p.Extra, pair)
	}
	return p
}

// find returns the pair for f, preferring the primary keyword over aliases.
func find(attrs *connstr.Attributes, f Field) (connstr.Pair, bool) {
	for _, key := range append([]string{f.Key}, f.Aliases...) {
		if v, ok := attrs.Get(key); ok {
			return connstr.Pair{Key: key, Value: v}, true
		}
	}
	return connstr.Pair{}, false
}

// Encode writes every schema field of p, preceded by the Extra attributes.
//
// With a Cloud ID set, `secure` is left out and `server`/`port` are written
// empty, since the Cloud ID supplies the endpoint and the TLS settings.
func Encode(p *Profile) string {
	return connstr.Write(Pairs(p))
}

// Pairs is Encode before serialization.
func Pairs(p *Profile) []connstr.Pair {
	pairs := make([]connstr.Pair, 0, len(p.Extra)+len(Schema))
	for _, e := range p.Extra {
		if _, known := Lookup(e.Key); known {
			continue
		}
		pairs = append(pairs, e)
	}

	cloud := strings.TrimSpace(p.CloudID) != ""
	for _, f := range Schema {
		value := f.Get(p)
		if cloud {
			switch f.Key {
			case KeySecure:
				continue
			case KeyServer, KeyPort:
				value = ""
			}
		}
		pairs = append(pairs, connstr.Pair{Key: f.Key, Value: value, Braced: f.Braced})
	}
	return pairs
}
