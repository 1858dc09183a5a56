package utils

import "context"

// ResetContextOnError returns the given context while it is alive, and a background one
// once it is canceled, so that the shutdown still gets a usable context.
func ResetContextOnError(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	return ctx
}
