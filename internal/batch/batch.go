// Package batch splits ordered collections into fixed-size chunks so store
// writes stay bounded.
package batch

import "iter"

// Chunks splits items into sub-slices of at most size elements, preserving
// order. The final chunk may be smaller. A non-positive size yields nil.
func Chunks[T any](items []T, size int) [][]T {
	if len(items) == 0 || size <= 0 {
		return nil
	}

	numChunks := (len(items) + size - 1) / size
	result := make([][]T, 0, numChunks)

	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		result = append(result, items[i:end])
	}

	return result
}

// All returns a restartable sequence over the chunks of items without
// materializing them up front.
func All[T any](items []T, size int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		if size <= 0 {
			return
		}
		for i := 0; i < len(items); i += size {
			end := min(i+size, len(items))
			if !yield(items[i:end]) {
				return
			}
		}
	}
}
