// Package shape holds the pure result shaping helpers used by the session workers:
// capping result lists, id dedupe and word frequency tables
package shape

// Truncate returns the first n items of list in their original order.
// The result never aliases list so callers may keep appending to either
func Truncate[T any](list []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(list) < n {
		n = len(list)
	}
	out := make([]T, n)
	copy(out, list[:n])
	return out
}

// Seen is a set of ids already delivered to a consumer
type Seen map[string]struct{}

// Has reports whether id is in the set
func (s Seen) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// DedupeByID splits list against seen. fresh holds the items whose id was not
// in seen, first occurrence only, in list order. next is a new set holding seen
// plus every id in list; seen itself is never modified
func DedupeByID[T any](list []T, seen Seen, id func(T) string) (fresh []T, next Seen) {
	next = make(Seen, len(seen)+len(list))
	for k := range seen {
		next[k] = struct{}{}
	}
	for _, item := range list {
		k := id(item)
		if next.Has(k) {
			continue
		}
		next[k] = struct{}{}
		fresh = append(fresh, item)
	}
	return fresh, next
}
