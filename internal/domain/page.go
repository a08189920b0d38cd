package domain

// Slice is one page of results from a single source plus the opaque
// continuation for the next page. A nil continuation means the source is
// exhausted.
type Slice[T any] struct {
	Entities     []T
	Continuation *string
}

// Page is a Slice that additionally carries the source's total count.
type Page[T any] struct {
	Entities     []T
	Continuation *string
	Total        int64
}

func (p Page[T]) ToSlice() Slice[T] {
	return Slice[T]{Entities: p.Entities, Continuation: p.Continuation}
}
