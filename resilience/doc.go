// Package resilience retries and polls remote calls made by the REST
// transcription backends.
//
// Retry runs an operation with exponential backoff while the error is
// retryable. Poll repeats a status check at a fixed interval until the
// remote job settles:
//
//	transcript, err := resilience.Poll(ctx, resilience.PollConfig{Interval: time.Second}, func() (*Transcript, bool, error) {
//	    t, err := api.Get(ctx, id)
//	    if err != nil {
//	        return nil, false, err
//	    }
//	    return t, t.Status == "completed", nil
//	})
package resilience
