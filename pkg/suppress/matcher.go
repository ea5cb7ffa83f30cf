package suppress

import (
	"cmp"
	"slices"
	"sync"
)

// Usage records that a suppression entry matched a violation.
type Usage struct {
	Rule  string `json:"rule"`
	Owner string `json:"owner"`
	Key   string `json:"key"`
}

// Matcher filters violations against a [Config]. It is safe for concurrent
// use by rules running in parallel.
//
// In normal mode a matching violation is suppressed and its match is
// recorded as a usage. In update mode nothing is suppressed, but matches are
// still recorded so [Matcher.Regenerate] can write back the entries that are
// still needed.
type Matcher struct {
	cfg    Config
	update bool

	mu     sync.Mutex
	usages map[Usage]struct{}
}

// NewMatcher returns a matcher over cfg. A nil cfg suppresses nothing.
func NewMatcher(cfg Config, update bool) *Matcher {
	if cfg == nil {
		cfg = Config{}
	}
	return &Matcher{cfg: cfg, update: update, usages: map[Usage]struct{}{}}
}

// UpdateMode reports whether the matcher is regenerating the config.
func (m *Matcher) UpdateMode() bool { return m.update }

// Config returns the configuration the matcher consults.
func (m *Matcher) Config() Config { return m.cfg }

// Suppressed reports whether the violation identified by owner and key
// should be dropped, recording the match as a usage. It always returns false
// in update mode.
func (m *Matcher) Suppressed(rule, owner, key string) bool {
	if !m.cfg.Has(owner, key) {
		return false
	}
	m.mu.Lock()
	m.usages[Usage{Rule: rule, Owner: owner, Key: key}] = struct{}{}
	m.mu.Unlock()
	return !m.update
}

// Usages returns all recorded usages sorted by owner, key and rule.
func (m *Matcher) Usages() []Usage {
	m.mu.Lock()
	out := make([]Usage, 0, len(m.usages))
	for u := range m.usages {
		out = append(out, u)
	}
	m.mu.Unlock()
	slices.SortFunc(out, func(a, b Usage) int {
		return cmp.Or(cmp.Compare(a.Owner, b.Owner), cmp.Compare(a.Key, b.Key), cmp.Compare(a.Rule, b.Rule))
	})
	return out
}

// Unused returns the configured entries that matched nothing.
func (m *Matcher) Unused() Config {
	used := m.Regenerate()
	out := Config{}
	for owner, keys := range m.cfg {
		for _, k := range keys {
			if !used.Has(owner, k) {
				out[owner] = append(out[owner], k)
			}
		}
	}
	return out.Normalize()
}

// Regenerate returns the configuration made of the entries that matched,
// i.e. the input config with stale entries pruned.
func (m *Matcher) Regenerate() Config {
	out := Config{}
	for _, u := range m.Usages() {
		out[u.Owner] = append(out[u.Owner], u.Key)
	}
	return out.Normalize()
}
