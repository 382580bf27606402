// Package provider holds the small generic framework every speech backend
// is built on: a named Provider, factories and a registry to create them,
// a Manager that picks one at runtime, and pull-based Iterators for results
// that arrive over time.
//
// RequestResponse[I, O] is the one-input, one-output shape of batch
// transcription services; streaming results are Iterators.
//
// Adapt bridges one RequestResponse shape to another, and Middleware wraps a
// RequestResponse with cross-cutting behavior such as logging.
//
//	reg := provider.NewRegistry[transcription.Client]()
//	reg.RegisterFactory("whisper", whisper.Factory)
//	mgr := provider.NewManager(reg, &provider.PrioritySelector[transcription.Client]{
//	    Priority: []string{"whisper", "openai"},
//	})
//	_ = mgr.InitializeWithContext(ctx, "whisper", cfg)
//	client, _ := mgr.Get(ctx)
package provider
