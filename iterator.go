package gcontacts

import (
	"context"
	"iter"
)

// pageFunc fetches a single page of items T at path, or the first page when
// path is empty. It returns the path of the following page, empty on the
// last page.
type pageFunc[T any] func(ctx context.Context, path string) (items []T, next string, err error)

// iterate returns an iterator that walks through all pages by following the
// continuation path each page hands back. Pages are fetched strictly one
// after another and the context is checked before every follow-up fetch.
func iterate[T any](ctx context.Context, fetch pageFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var path string

		for {
			items, next, err := fetch(ctx, path)
			if err != nil {
				yield(*new(T), err)
				return
			}

			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}

			if next == "" {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(*new(T), err)
				return
			}
			path = next
		}
	}
}
