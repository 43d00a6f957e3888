package helpers

import (
	"net/url"
	"strings"
	"sync"

	"cheese-stick/src/logger"
	"cheese-stick/src/models"
)

// Yahoo answers the bare Go client with 429s, so requests carry a browser
// agent unless the config pins one.
var browserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

var proxySchemes = map[string]bool{"http": true, "https": true, "socks5": true}

// -----------------------------------------------------------------------------

// ProxyManager hands the quote and news fetchers their outbound route. With
// no usable proxy every request goes direct.
type ProxyManager struct {
	mu       sync.Mutex
	routes   []string
	current  int
	agents   []string
	nextUA   int
	rotation int
	logger   *logger.Logger
}

// NewProxyManager keeps the configured proxies that parse. Proxies are
// ignored when the network section is disabled.
func NewProxyManager(cfg models.MNetworkConfig, log *logger.Logger) *ProxyManager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	pm := &ProxyManager{agents: browserAgents, logger: log}
	if cfg.UserAgent != "" {
		pm.agents = []string{cfg.UserAgent}
	}
	if !cfg.Enabled {
		return pm
	}

	for _, raw := range cfg.Proxies {
		route, ok := NormalizeProxy(raw)
		if !ok {
			log.Warning("Ignoring proxy %q", raw)
			continue
		}
		pm.routes = append(pm.routes, route)
	}
	if len(pm.routes) > 0 {
		log.Info("Routing market data through %d proxies", len(pm.routes))
	}
	return pm
}

// GetCurrentProxy returns the active proxy URL, or "" to connect directly.
func (pm *ProxyManager) GetCurrentProxy() (string, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if len(pm.routes) == 0 {
		return "", nil
	}
	return pm.routes[pm.current], nil
}

// RotateProxy moves on after a failed fetch.
func (pm *ProxyManager) RotateProxy() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if len(pm.routes) < 2 {
		return
	}
	pm.current = (pm.current + 1) % len(pm.routes)
	pm.rotation++
	pm.logger.Info("Fetch failed, switching to proxy %d/%d (rotation %d)", pm.current+1, len(pm.routes), pm.rotation)
}

func (pm *ProxyManager) HasProxies() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.routes) > 0
}

// GetUserAgent cycles through the browser agents.
func (pm *ProxyManager) GetUserAgent() string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	ua := pm.agents[pm.nextUA%len(pm.agents)]
	pm.nextUA++
	return ua
}

// -----------------------------------------------------------------------------

// NormalizeProxy adds the http scheme to bare host:port entries and reports
// whether the result is a usable proxy URL.
func NormalizeProxy(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !proxySchemes[u.Scheme] {
		return "", false
	}
	return raw, true
}
