// Package httpclient is the outbound HTTP layer shared by the LLM backends and
// the dataset ingester.
//
// Failures are classified into *Error values (timeout, canceled, connection,
// or a status class) so callers can map them onto their own taxonomy without
// inspecting net/http internals:
//
//	resp, err := client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/api/generate", Body: payload})
//	switch {
//	case httpclient.IsTimeout(err):
//	case httpclient.IsConnection(err):
//	}
//
// Config.Retry enables retries of retryable failures; it is off by default.
package httpclient
