package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager fetches raw quote and headline payloads over HTTP, with
// retries and proxy rotation.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// Get requests url with params as the query string and returns the body
	// of a 2xx response.
	Get(ctx context.Context, url string, params map[string]string) ([]byte, error)
}
