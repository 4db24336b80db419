package query

// DefaultLimit is used when a caller does not ask for a page size.
const DefaultLimit = 10

// MaxLimit caps client-supplied page sizes.
const MaxLimit = 100

// Page is one slice of a keyset-paginated listing.
// NextKey is set iff the page came back full, meaning more rows may exist.
type Page[T any, K any] struct {
	Items   []T `json:"items"`
	NextKey *K  `json:"next_key"`
}

// NewPage wraps items fetched with the given limit.
func NewPage[T any, K any](items []T, limit int, key func(T) K) Page[T, K] {
	if items == nil {
		items = []T{}
	}
	p := Page[T, K]{Items: items}
	if limit > 0 && len(items) >= limit {
		k := key(items[len(items)-1])
		p.NextKey = &k
	}
	return p
}

// ClampLimit normalises a requested page size.
func ClampLimit(n, fallback int) int {
	if fallback <= 0 {
		fallback = DefaultLimit
	}
	if n <= 0 {
		n = fallback
	}
	if n > MaxLimit {
		n = MaxLimit
	}
	return n
}
