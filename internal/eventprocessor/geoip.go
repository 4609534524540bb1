// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package eventprocessor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/cache"
)

// GeoLocation is the subset of ip-api.com's response the enrichment step
// attaches to an event's source IP.
type GeoLocation struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ISP         string  `json:"isp"`
}

// geoIPRateLimiter is a simple token bucket, refilled on demand rather than
// by a background ticker.
type geoIPRateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

func newGeoIPRateLimiter(maxTokens int, refillRate time.Duration) *geoIPRateLimiter {
	return &geoIPRateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *geoIPRateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if tokensToAdd := int(now.Sub(r.lastRefill) / r.refillRate); tokensToAdd > 0 {
		r.tokens = min(r.maxTokens, r.tokens+tokensToAdd)
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ISP         string  `json:"isp"`
}

// GeoResolver looks up the approximate location of a public IP address
// through ip-api.com's free tier, caching results so the same source IP
// (the common case for a single log shipper) is only looked up once per
// cache lifetime.
type GeoResolver struct {
	client      *http.Client
	rateLimiter *geoIPRateLimiter
	baseURL     string
	cache       *cache.LFUCacheGeneric[*GeoLocation]
}

// NewGeoResolver builds a resolver backed by a bounded, TTL-expiring cache.
// ip-api.com's free tier allows 45 requests/minute; private and already
// cached addresses never count against it.
func NewGeoResolver(cacheCapacity int, cacheTTL time.Duration) *GeoResolver {
	if cacheCapacity <= 0 {
		cacheCapacity = 50000
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &GeoResolver{
		client:      &http.Client{Timeout: 10 * time.Second},
		rateLimiter: newGeoIPRateLimiter(45, time.Minute/45),
		baseURL:     "http://ip-api.com/json",
		cache:       cache.NewLFUCacheGeneric[*GeoLocation](cacheCapacity, cacheTTL),
	}
}

// Resolve returns the geolocation of ipAddr, or (nil, nil) for private,
// loopback, or otherwise unroutable addresses which ip-api.com cannot
// locate.
func (g *GeoResolver) Resolve(ctx context.Context, ipAddr string) (*GeoLocation, error) {
	ip := net.ParseIP(ipAddr)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ipAddr)
	}
	if isUnresolvableIP(ip) {
		return nil, nil
	}

	if hit, ok := g.cache.Get(ipAddr); ok {
		return hit, nil
	}

	if !g.rateLimiter.Allow() {
		return nil, fmt.Errorf("geoip rate limit exceeded for %s", g.baseURL)
	}

	loc, err := g.query(ctx, ipAddr)
	if err != nil {
		return nil, err
	}
	g.cache.Set(ipAddr, loc)
	return loc, nil
}

func (g *GeoResolver) query(ctx context.Context, ipAddr string) (*GeoLocation, error) {
	url := fmt.Sprintf("%s/%s?fields=status,message,country,countryCode,regionName,city,lat,lon,isp", g.baseURL, ipAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build geoip request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query ip-api.com: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api.com returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode ip-api.com response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("ip-api.com lookup failed: %s", result.Message)
	}

	return &GeoLocation{
		Country:     result.Country,
		CountryCode: result.CountryCode,
		Region:      result.RegionName,
		City:        result.City,
		Latitude:    result.Lat,
		Longitude:   result.Lon,
		ISP:         result.ISP,
	}, nil
}

func isUnresolvableIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// reverseDNSCache memoizes PTR lookups; the corpus's ip-api provider does
// not cover reverse DNS, so this wraps net.DefaultResolver directly instead.
type reverseDNSCache struct {
	cache *cache.LFUCacheGeneric[string]
}

func newReverseDNSCache(capacity int, ttl time.Duration) *reverseDNSCache {
	if capacity <= 0 {
		capacity = 50000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &reverseDNSCache{cache: cache.NewLFUCacheGeneric[string](capacity, ttl)}
}

// Lookup returns the first PTR record for ipAddr, or "" if none resolves.
func (r *reverseDNSCache) Lookup(ctx context.Context, ipAddr string) string {
	if hit, ok := r.cache.Get(ipAddr); ok {
		return hit
	}

	names, err := net.DefaultResolver.LookupAddr(ctx, ipAddr)
	hostname := ""
	if err == nil && len(names) > 0 {
		hostname = names[0]
	}
	r.cache.Set(ipAddr, hostname)
	return hostname
}
