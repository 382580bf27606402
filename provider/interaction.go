package provider

import "context"

// RequestResponse turns one input into one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}
