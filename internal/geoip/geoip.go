package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"dispatch-service/config"
)

// Provider resolves a client IP to an ISO country code. An empty code means
// the country is unknown; the selector treats unknown as matching only
// unrestricted targets.
type Provider interface {
	Country(ctx context.Context, ip string) (string, error)
	Close() error
}

func NewProvider(cfg *config.GeoIPConfig) Provider {
	if !cfg.Enabled {
		return &disabledProvider{}
	}
	return NewIPAPIProvider(cfg.CacheSize)
}

type disabledProvider struct{}

func (d *disabledProvider) Country(ctx context.Context, ip string) (string, error) {
	return "", nil
}

func (d *disabledProvider) Close() error { return nil }

// IPAPIProvider looks countries up via ip-api.com with a bounded in-process
// cache. Lookups are best-effort: a failure yields an empty country rather
// than an error on the dispatch path.
type IPAPIProvider struct {
	client    *http.Client
	mu        sync.RWMutex
	cache     map[string]string
	cacheSize int
}

func NewIPAPIProvider(cacheSize int) *IPAPIProvider {
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	return &IPAPIProvider{
		client:    &http.Client{Timeout: 3 * time.Second},
		cache:     make(map[string]string),
		cacheSize: cacheSize,
	}
}

func (p *IPAPIProvider) Country(ctx context.Context, ip string) (string, error) {
	if isPrivateIP(ip) {
		return "", nil
	}

	p.mu.RLock()
	code, ok := p.cache[ip]
	p.mu.RUnlock()
	if ok {
		return code, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("http://ip-api.com/json/%s?fields=status,countryCode", ip), nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoip lookup: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Status      string `json:"status"`
		CountryCode string `json:"countryCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Status != "success" {
		return "", fmt.Errorf("geoip lookup failed for %s", ip)
	}

	p.mu.Lock()
	if len(p.cache) >= p.cacheSize {
		// Full cache: reset rather than track recency.
		p.cache = make(map[string]string)
	}
	p.cache[ip] = result.CountryCode
	p.mu.Unlock()

	return result.CountryCode, nil
}

func (p *IPAPIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

var privateBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			privateBlocks = append(privateBlocks, block)
		}
	}
}

func isPrivateIP(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	for _, block := range privateBlocks {
		if block.Contains(addr) {
			return true
		}
	}
	return false
}
