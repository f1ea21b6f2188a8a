package dashboard

import "github.com/google/uuid"

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one row-level event for a Feed. Item is unused for deletes.
type Change[T any] struct {
	Op   Op
	ID   uuid.UUID
	Item T
}

// Feed is a newest-first list kept in step with row changes: inserts are
// prepended, updates replace by id, deletes remove by id.
type Feed[T any] struct {
	items []T
	id    func(T) uuid.UUID
}

func NewFeed[T any](id func(T) uuid.UUID, snapshot []T) *Feed[T] {
	items := make([]T, len(snapshot))
	copy(items, snapshot)
	return &Feed[T]{items: items, id: id}
}

func (f *Feed[T]) index(id uuid.UUID) int {
	for i, it := range f.items {
		if f.id(it) == id {
			return i
		}
	}
	return -1
}

// Apply merges one change and returns the operation that actually took
// effect. A repeated insert becomes an update. Updates and deletes for
// unknown ids change nothing and report false.
func (f *Feed[T]) Apply(c Change[T]) (Op, bool) {
	i := f.index(c.ID)
	switch c.Op {
	case OpInsert:
		if i >= 0 {
			f.items[i] = c.Item
			return OpUpdate, true
		}
		f.items = append([]T{c.Item}, f.items...)
		return OpInsert, true
	case OpUpdate:
		if i >= 0 {
			f.items[i] = c.Item
			return OpUpdate, true
		}
	case OpDelete:
		if i >= 0 {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return OpDelete, true
		}
	}
	return c.Op, false
}

func (f *Feed[T]) Items() []T {
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed[T]) Len() int { return len(f.items) }
