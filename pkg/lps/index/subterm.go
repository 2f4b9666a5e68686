package index

import (
	"github.com/benbjohnson/immutable"
	"github.com/spaolacci/murmur3"

	"github.com/cognicore/lps/pkg/lps/term"
)

// subterms assigns ids to non-atomic arguments. Equal sub-terms share an
// id; the id is released once no stored literal refers to it. The table is
// persistent like the tree: updates return a new *subterms.
type subterms struct {
	next    int
	buckets *immutable.Map[uint32, []subEntry]
	aux     Index
}

type subEntry struct {
	id   int
	term term.Compound
	refs int
}

type bucketHasher struct{}

func (bucketHasher) Hash(key uint32) uint32 { return key }
func (bucketHasher) Equal(a, b uint32) bool { return a == b }

func hashTerm(t term.Compound) uint32 {
	return murmur3.Sum32([]byte(t.String()))
}

func (s *subterms) find(t term.Compound) (uint32, []subEntry, int) {
	h := hashTerm(t)
	if s == nil || s.buckets == nil {
		return h, nil, -1
	}
	bucket, _ := s.buckets.Get(h)
	for i, e := range bucket {
		if term.Equal(e.term, t) {
			return h, bucket, i
		}
	}
	return h, bucket, -1
}

func (s *subterms) lookup(t term.Compound) (int, bool) {
	_, bucket, i := s.find(t)
	if i < 0 {
		return 0, false
	}
	return bucket[i].id, true
}

// acquire registers one more reference to t and returns its id.
func (s *subterms) acquire(t term.Compound) (*subterms, int) {
	var cp subterms
	if s != nil {
		cp = *s
	}
	if cp.buckets == nil {
		cp.buckets = immutable.NewMap[uint32, []subEntry](bucketHasher{})
	}
	h, bucket, i := s.find(t)
	next := make([]subEntry, len(bucket), len(bucket)+1)
	copy(next, bucket)
	var id int
	if i >= 0 {
		next[i].refs++
		id = next[i].id
	} else {
		id = cp.next
		cp.next++
		next = append(next, subEntry{id: id, term: t, refs: 1})
		cp.aux.Add(t)
	}
	cp.buckets = cp.buckets.Set(h, next)
	return &cp, id
}

// release drops one reference to t, forgetting it when none remain.
func (s *subterms) release(t term.Compound) *subterms {
	h, bucket, i := s.find(t)
	if i < 0 {
		return s
	}
	cp := *s
	next := make([]subEntry, 0, len(bucket))
	for j, e := range bucket {
		if j != i {
			next = append(next, e)
			continue
		}
		if e.refs > 1 {
			e.refs--
			next = append(next, e)
			continue
		}
		cp.aux.Remove(t)
	}
	if len(next) == 0 {
		cp.buckets = cp.buckets.Delete(h)
	} else {
		cp.buckets = cp.buckets.Set(h, next)
	}
	return &cp
}

// unifying returns the ids of stored sub-terms that unify with t.
func (s *subterms) unifying(t term.Compound) []int {
	if s == nil {
		return nil
	}
	var ids []int
	for _, m := range s.aux.Unifies(t, term.Theta{}) {
		if id, ok := s.lookup(m.Literal); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
