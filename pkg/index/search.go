package index

import (
	"sort"
	"strings"
)

// Rank orders search matches; lower ranks are better.
type Rank int

const (
	RankExact Rank = iota
	RankPrefix
	RankSubstring
)

func (r Rank) String() string {
	switch r {
	case RankExact:
		return "exact"
	case RankPrefix:
		return "prefix"
	default:
		return "substring"
	}
}

// MarshalText encodes the rank by name.
func (r Rank) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Match is a search hit. Method is empty when the hit is a module.
type Match struct {
	Key       string `json:"key"`
	Module    string `json:"module"`
	Method    string `json:"method,omitempty"`
	Singleton bool   `json:"singleton,omitempty"`
	Rank      Rank   `json:"rank"`
}

// Search finds modules and methods whose key or name contains query,
// case-insensitively. Exact matches rank before prefix matches, which rank
// before substring matches; ties are broken by key length, then key. A limit
// of zero or less returns every match.
func (db *Database) Search(query string, limit int) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	db.mu.RLock()
	var matches []Match
	for _, m := range db.modules {
		if r, ok := rank(q, strings.ToLower(m.Name), strings.ToLower(m.BaseName())); ok {
			matches = append(matches, Match{Key: m.Name, Module: m.Name, Rank: r})
		}
		for i := range m.Methods {
			meth := &m.Methods[i]
			key := meth.Key(m.Name)
			if r, ok := rank(q, strings.ToLower(key), strings.ToLower(meth.Name)); ok {
				matches = append(matches, Match{
					Key:       key,
					Module:    m.Name,
					Method:    meth.Name,
					Singleton: meth.Singleton,
					Rank:      r,
				})
			}
		}
	}
	db.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if len(a.Key) != len(b.Key) {
			return len(a.Key) < len(b.Key)
		}
		return a.Key < b.Key
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// rank compares q against a full key and a short name and returns the best
// rank of the two.
func rank(q, key, name string) (Rank, bool) {
	switch {
	case key == q || name == q:
		return RankExact, true
	case strings.HasPrefix(key, q) || strings.HasPrefix(name, q):
		return RankPrefix, true
	case strings.Contains(key, q):
		return RankSubstring, true
	}
	return 0, false
}
