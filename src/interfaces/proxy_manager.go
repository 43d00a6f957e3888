package interfaces

// -----------------------------------------------------------------------------
// IProxyManager hands the network manager its outbound proxy and user agent.
// -----------------------------------------------------------------------------

type IProxyManager interface {

	// GetCurrentProxy returns the proxy URL in use, or "" for a direct connection.
	GetCurrentProxy() (string, error)

	// RotateProxy moves to the next configured proxy after a failed request.
	RotateProxy()

	// HasProxies reports whether any proxy is configured.
	HasProxies() bool

	// GetUserAgent picks the User-Agent header for the next request.
	GetUserAgent() string
}
