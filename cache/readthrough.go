package cache

import "context"

// GetOrLoad returns the value stored under d and modifier. On a miss it calls
// load and puts the result through the Layer, so dependency registration and
// cascading eviction apply as for any other Put.
// Errors from load are returned and NOT cached.
func GetOrLoad[T any](ctx context.Context, l *Layer, d *Descriptor, modifier string, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok, err := Get[T](ctx, l, d, modifier); err != nil {
		var zero T
		return zero, err
	} else if ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := l.Put(ctx, d, v, modifier); err != nil {
		return v, err
	}
	return v, nil
}
