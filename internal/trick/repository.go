package trick

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/roach88/concha/internal/tree"
)

// ErrNotFound is returned for ids that were never assigned or were
// deleted.
var ErrNotFound = errors.New("trick not found")

// Entry is a stored trick with its id.
type Entry struct {
	ID    int    `json:"id"`
	Trick *Trick `json:"trick"`
}

// Domain is an immutable ordered set of tricks, sorted by id.
type Domain struct {
	entries []Entry
}

func newDomain(entries []Entry) *Domain {
	return &Domain{entries: entries}
}

// with returns d extended by e, whose id must exceed every id in d. The
// backing array may be shared: d only ever sees its own length, and
// nothing writes below the newest domain's length.
func (d *Domain) with(e Entry) *Domain {
	return &Domain{entries: append(d.entries, e)}
}

// Len is the number of tricks in the domain.
func (d *Domain) Len() int { return len(d.entries) }

// Get returns the trick with id if it belongs to the domain.
func (d *Domain) Get(id int) (*Trick, bool) {
	i, ok := slices.BinarySearchFunc(d.entries, id, func(e Entry, id int) int {
		return cmp.Compare(e.ID, id)
	})
	if !ok {
		return nil, false
	}
	return d.entries[i].Trick, true
}

// IDs lists the domain's trick ids in order.
func (d *Domain) IDs() []int {
	ids := make([]int, len(d.entries))
	for i, e := range d.entries {
		ids[i] = e.ID
	}
	return ids
}

// Entries returns the domain's tricks in order.
func (d *Domain) Entries() []Entry {
	return append([]Entry(nil), d.entries...)
}

// Match returns, in domain order, the ids of the tricks whose given
// pattern tr satisfies.
func (d *Domain) Match(tr *tree.Tree) []int {
	var ids []int
	for _, e := range d.entries {
		if e.Trick.Matches(tr) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Snapshot is a consistent view of both domains.
type Snapshot struct {
	Default *Domain
	Errors  *Domain
}

// Lookup finds id in either domain and returns the domain it lives in.
func (s *Snapshot) Lookup(id int) (*Trick, *Domain, bool) {
	if t, ok := s.Default.Get(id); ok {
		return t, s.Default, true
	}
	if t, ok := s.Errors.Get(id); ok {
		return t, s.Errors, true
	}
	return nil, nil, false
}

// Repository stores tricks under stable ids. Deleted ids are never
// reused. Readers work on snapshots, so a resolution in flight never
// sees a half-applied change.
type Repository struct {
	mu     sync.RWMutex
	tricks []*Trick // nil marks a deleted id
	snap   *Snapshot
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	r := &Repository{}
	r.rebuild()
	return r
}

// rebuild must be called with mu held for writing.
func (r *Repository) rebuild() {
	var def, errs []Entry
	for id, t := range r.tricks {
		switch {
		case t == nil:
		case t.IsError():
			errs = append(errs, Entry{ID: id, Trick: t})
		default:
			def = append(def, Entry{ID: id, Trick: t})
		}
	}
	r.snap = &Snapshot{Default: newDomain(def), Errors: newDomain(errs)}
}

// Snapshot returns the current view of both domains.
func (r *Repository) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// appendTrick stores t under the next id, extending only the domain it
// belongs to. Must be called with mu held for writing.
func (r *Repository) appendTrick(t *Trick) int {
	id := len(r.tricks)
	r.tricks = append(r.tricks, t)
	snap := *r.snap
	if t.IsError() {
		snap.Errors = snap.Errors.with(Entry{ID: id, Trick: t})
	} else {
		snap.Default = snap.Default.with(Entry{ID: id, Trick: t})
	}
	r.snap = &snap
	return id
}

// Add stores t under the next id and returns it.
func (r *Repository) Add(t *Trick) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendTrick(t)
}

// Create validates a trick document and stores it.
func (r *Repository) Create(data []byte) (int, *Trick, error) {
	t, err := Parse(data)
	if err != nil {
		return 0, nil, err
	}
	return r.Add(t), t, nil
}

// Put replaces the trick stored under id.
func (r *Repository) Put(id int, t *Trick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live(id) {
		return ErrNotFound
	}
	r.tricks[id] = t
	r.rebuild()
	return nil
}

// Delete removes the trick stored under id. The id stays reserved.
func (r *Repository) Delete(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live(id) {
		return ErrNotFound
	}
	r.tricks[id] = nil
	r.rebuild()
	return nil
}

// Insert stores t under an explicit id, reserving any skipped ids as
// deleted. A nil t deletes. Used when replaying a persisted log.
func (r *Repository) Insert(id int, t *Trick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t != nil && id >= len(r.tricks) {
		for len(r.tricks) < id {
			r.tricks = append(r.tricks, nil)
		}
		r.appendTrick(t)
		return
	}
	for len(r.tricks) <= id {
		r.tricks = append(r.tricks, nil)
	}
	r.tricks[id] = t
	r.rebuild()
}

// Replace drops every trick and stores tricks under ids 0..n-1.
func (r *Repository) Replace(tricks []*Trick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tricks = append([]*Trick(nil), tricks...)
	r.rebuild()
}

// NextID is the id the next Add will assign.
func (r *Repository) NextID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tricks)
}

// Get returns the trick stored under id.
func (r *Repository) Get(id int) (*Trick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.live(id) {
		return nil, ErrNotFound
	}
	return r.tricks[id], nil
}

// List returns every live trick in id order.
func (r *Repository) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entry
	for id, t := range r.tricks {
		if t != nil {
			out = append(out, Entry{ID: id, Trick: t})
		}
	}
	return out
}

// Len is the number of live tricks.
func (r *Repository) Len() int {
	s := r.Snapshot()
	return s.Default.Len() + s.Errors.Len()
}

func (r *Repository) live(id int) bool {
	return id >= 0 && id < len(r.tricks) && r.tricks[id] != nil
}
