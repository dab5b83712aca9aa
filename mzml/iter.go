package mzml

// Iterator steps through records:
//
//	it, err := r.ReadAllSpectra(true)
//	...
//	for it.Next() {
//		s := it.Record()
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
//
// Iteration stops at the first error.
type Iterator[T any] struct {
	next func() (T, bool, error)
	cur  T
	err  error
	done bool
}

func newIterator[T any](next func() (T, bool, error)) *Iterator[T] {
	return &Iterator[T]{next: next}
}

// Next advances to the next record and reports whether there is one
func (it *Iterator[T]) Next() bool {
	var zero T
	it.cur = zero
	if it.done {
		return false
	}
	v, ok, err := it.next()
	if err != nil || !ok {
		it.err = err
		it.done = true
		return false
	}
	it.cur = v
	return true
}

// Record returns the current record
func (it *Iterator[T]) Record() T {
	return it.cur
}

// Err returns the error that stopped the iteration, if any
func (it *Iterator[T]) Err() error {
	return it.err
}

// Collect reads the remaining records
func (it *Iterator[T]) Collect() ([]T, error) {
	var all []T
	for it.Next() {
		all = append(all, it.Record())
	}
	return all, it.Err()
}

// cachedIterator hands out clones of records. errs holds decoding errors
// of binary arrays by position; they stop the iteration only when peaks
// are wanted.
func cachedIterator[T any](records []T, errs map[int]error, peaks bool, clone func(T) T) *Iterator[T] {
	i := 0
	return newIterator(func() (T, bool, error) {
		var zero T
		if i >= len(records) {
			return zero, false, nil
		}
		i++
		if err := errs[i-1]; err != nil && peaks {
			return zero, false, err
		}
		return clone(records[i-1]), true, nil
	})
}

// seqIterator reads records 1..n(). n is asked again for every record,
// since the index may be rebuilt while iterating.
func seqIterator[T any](n func() int, read func(seq int) (T, error)) *Iterator[T] {
	seq := 0
	return newIterator(func() (T, bool, error) {
		var zero T
		if seq >= n() {
			return zero, false, nil
		}
		seq++
		v, err := read(seq)
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	})
}
