// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package geoip

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/sdenike/fauxdash/internal/breaker"
	"github.com/sdenike/fauxdash/internal/models"
)

const (
	ipAPIBaseURL = "http://ip-api.com/json"
	ipAPIFields  = "status,message,country,countryCode,regionName,city,lat,lon,timezone,isp,query"

	// ip-api.com allows 45 requests per minute on the free tier.
	ipAPIRequestsPerMinute = 45
)

// IPAPIProvider queries the free ip-api.com service. No key is required.
type IPAPIProvider struct {
	client  *http.Client
	limiter *rate.Limiter
	breaker *breaker.Breaker[*models.Geolocation]
	baseURL string
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
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
}

// NewIPAPIProvider creates an ip-api.com provider.
func NewIPAPIProvider(timeout time.Duration) *IPAPIProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IPAPIProvider{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/ipAPIRequestsPerMinute), ipAPIRequestsPerMinute),
		breaker: breaker.New[*models.Geolocation]("geoip-ipapi"),
		baseURL: ipAPIBaseURL,
	}
}

// Name returns the provider name.
func (p *IPAPIProvider) Name() string {
	return "ip-api"
}

// Available always reports true.
func (p *IPAPIProvider) Available() bool {
	return true
}

// Lookup queries ip-api.com. Requests beyond the free-tier budget fail
// fast with ErrRateLimited instead of queueing.
func (p *IPAPIProvider) Lookup(ctx context.Context, ip string) (*models.Geolocation, error) {
	if !p.limiter.Allow() {
		return nil, fmt.Errorf("ip-api.com: %w", ErrRateLimited)
	}
	return p.breaker.Execute(func() (*models.Geolocation, error) {
		return p.query(ctx, ip)
	})
}

func (p *IPAPIProvider) query(ctx context.Context, ip string) (*models.Geolocation, error) {
	url := fmt.Sprintf("%s/%s?fields=%s", p.baseURL, ip, ipAPIFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query ip-api.com: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api.com returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ip-api.com response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("%w: ip-api.com: %s", ErrNotFound, result.Message)
	}

	return &models.Geolocation{
		IPAddress:   ip,
		Country:     result.Country,
		CountryCode: result.CountryCode,
		Region:      result.RegionName,
		City:        result.City,
		Latitude:    result.Lat,
		Longitude:   result.Lon,
		Timezone:    result.Timezone,
		ISP:         result.ISP,
		Provider:    "ip-api",
		LastUpdated: time.Now().UTC(),
	}, nil
}
