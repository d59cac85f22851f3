// Package notionapi is an HTTP client for the block API.
//
// The client implements request.Transport and request.ChildLister, so it can
// back a request.Session directly:
//
//	client, err := notionapi.NewClient(&notionapi.Config{AuthToken: token}, logger)
//	if err != nil {
//		return err
//	}
//	session, err := request.NewSession(client, request.WithLogger(logger))
//
// Every request waits on a client-wide rate limiter, and rate limited,
// conflicting and server errors are retried with exponential backoff up to
// MaxRetries times. Error responses are returned as *APIError.
package notionapi
