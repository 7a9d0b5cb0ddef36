package reconcile

import "sort"

// outstanding tracks which records of one batch have not yet been matched
// by a returned page. It is owned by a single batch goroutine.
type outstanding struct {
	keys map[string]int // normalized title -> index within the batch
}

func newOutstanding(titles []string) *outstanding {
	o := &outstanding{keys: make(map[string]int, len(titles))}
	for i, k := range titles {
		o.keys[k] = i
	}
	return o
}

// Take removes key and returns its batch index. The second return is false
// if key is not outstanding, either unknown or already matched.
func (o *outstanding) Take(key string) (int, bool) {
	i, ok := o.keys[key]
	if ok {
		delete(o.keys, key)
	}
	return i, ok
}

func (o *outstanding) Len() int { return len(o.keys) }

// Remaining returns the unmatched titles in sorted order.
func (o *outstanding) Remaining() []string {
	out := make([]string, 0, len(o.keys))
	for k := range o.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
