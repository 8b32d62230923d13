package retry

import "context"

// First tries fns strictly left to right, sequentially, and returns the
// first success. With no fns it yields the zero value and no error; with one
// fn its result is returned unmodified. When every fn fails, the last
// failure is returned. At most one fn is in flight at any moment.
func First[T any](ctx context.Context, fns ...func(context.Context) (T, error)) (T, error) {
	var zero T
	if len(fns) == 0 {
		return zero, nil
	}
	var err error
	for _, fn := range fns {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
	}
	return zero, err
}
