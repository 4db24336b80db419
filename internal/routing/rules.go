package routing

import (
	"regexp"
	"sync"
	"time"
)

// DefaultRule classifies unknown callers by phone-number pattern.
// Order is the explicit evaluation key; ID only breaks ties.
type DefaultRule struct {
	ID         int64     `json:"id"`
	Order      int32     `json:"order"`
	Regexp     string    `json:"regexp"`
	Name       string    `json:"name"`
	Action     Action    `json:"action"`
	InsertedAt time.Time `json:"inserted_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Rules is a first-match-wins decision table. It must already be sorted by
// (Order, ID); Store.List returns it that way.
type Rules []DefaultRule

// Match returns the first rule whose pattern occurs anywhere in phone.
//
// Patterns are validated on write. A pattern that still fails to compile
// (edited directly in the database, say) is skipped rather than failing the
// whole table.
func (rs Rules) Match(phone string) (DefaultRule, bool) {
	for _, r := range rs {
		re, err := compile(r.Regexp)
		if err != nil {
			continue
		}
		if re.MatchString(phone) {
			return r, true
		}
	}
	return DefaultRule{}, false
}

// maxCachedPatterns bounds the compiled-pattern cache. The rule table is
// small, so hitting the cap means stale patterns have piled up.
const maxCachedPatterns = 256

// patternCache holds compiled rule patterns. Rule writes reset it so edited
// or deleted patterns do not linger.
var patternCache = &regexpCache{byPattern: map[string]*regexp.Regexp{}}

type regexpCache struct {
	mu        sync.Mutex
	byPattern map[string]*regexp.Regexp
}

func (c *regexpCache) get(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.byPattern[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if len(c.byPattern) >= maxCachedPatterns {
		clear(c.byPattern)
	}
	c.byPattern[pattern] = re
	return re, nil
}

func (c *regexpCache) reset() {
	c.mu.Lock()
	clear(c.byPattern)
	c.mu.Unlock()
}

func (c *regexpCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byPattern)
}

func compile(pattern string) (*regexp.Regexp, error) {
	return patternCache.get(pattern)
}
