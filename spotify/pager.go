package spotify

import "context"

// PageFunc fetches one page of items for the given cursor. The empty
// cursor means the first page. It returns the items, the cursor for the
// following page (empty when exhausted), and an error.
//
// Offset-based endpoints encode the next offset as the cursor; the
// followed-artists endpoint uses the upstream's opaque next URL.
type PageFunc[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// Pager walks a paginated endpoint on demand. Pages are fetched only
// when asked for, so callers that stop early never pay for the tail.
//
// A Pager is single-use and not safe for concurrent use.
type Pager[T any] struct {
	fetch  PageFunc[T]
	cursor string
	done   bool
}

// NewPager creates a pager positioned before the first page.
func NewPager[T any](fetch PageFunc[T]) *Pager[T] {
	return &Pager[T]{fetch: fetch}
}

// Next fetches the next page. Returns nil items once the pager is
// exhausted. A fetch error leaves the pager usable; the same page is
// retried on the next call.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}
	items, next, err := p.fetch(ctx, p.cursor)
	if err != nil {
		return nil, err
	}
	p.cursor = next
	if next == "" {
		p.done = true
	}
	return items, nil
}

// Done reports whether all pages have been consumed.
func (p *Pager[T]) Done() bool {
	return p.done
}

// Collect drains the pager into a slice, stopping once max items are
// gathered. max <= 0 means no bound.
func Collect[T any](ctx context.Context, p *Pager[T], max int) ([]T, error) {
	var out []T
	for !p.Done() {
		items, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if max > 0 && len(out) >= max {
			return out[:max], nil
		}
	}
	return out, nil
}
