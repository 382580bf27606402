// Package httpclient is the HTTP transport shared by the REST
// transcription backends.
//
// It resolves paths against a base URL, applies default headers and
// authentication, encodes JSON bodies, classifies failing status codes into
// typed errors, and retries replayable requests:
//
//	c, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.assemblyai.com/v2",
//	    Auth:    httpclient.APIKeyAuthHeader(key, "Authorization"),
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//
//	resp, err := httpclient.Get[transcript](c, ctx, "/transcript/"+id)
//
// Requests whose body is an io.Reader are sent once: a consumed stream
// cannot be replayed.
package httpclient
