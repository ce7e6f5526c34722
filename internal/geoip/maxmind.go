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

	"github.com/sdenike/fauxdash/internal/breaker"
	"github.com/sdenike/fauxdash/internal/models"
)

const maxMindBaseURL = "https://geolite.info/geoip/v2.1/city"

// MaxMindProvider queries the MaxMind GeoLite2 web service.
// Register at https://www.maxmind.com/en/geolite2/signup; the free tier
// allows 1,000 lookups per day.
type MaxMindProvider struct {
	client     *http.Client
	breaker    *breaker.Breaker[*models.Geolocation]
	accountID  string
	licenseKey string
	baseURL    string
}

type maxMindResponse struct {
	City struct {
		Names map[string]string `json:"names"`
	} `json:"city"`
	Country struct {
		ISOCode string            `json:"iso_code"`
		Names   map[string]string `json:"names"`
	} `json:"country"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		TimeZone  string  `json:"time_zone"`
	} `json:"location"`
	Subdivisions []struct {
		Names map[string]string `json:"names"`
	} `json:"subdivisions"`
	Traits struct {
		ISP          string `json:"isp"`
		Organization string `json:"autonomous_system_organization"`
	} `json:"traits"`
}

type maxMindErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// NewMaxMindProvider creates a MaxMind web service provider.
func NewMaxMindProvider(accountID, licenseKey string, timeout time.Duration) *MaxMindProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MaxMindProvider{
		client:     &http.Client{Timeout: timeout},
		breaker:    breaker.New[*models.Geolocation]("geoip-maxmind"),
		accountID:  accountID,
		licenseKey: licenseKey,
		baseURL:    maxMindBaseURL,
	}
}

// Name returns the provider name.
func (p *MaxMindProvider) Name() string {
	return "maxmind"
}

// Available reports whether credentials are configured.
func (p *MaxMindProvider) Available() bool {
	return p.accountID != "" && p.licenseKey != ""
}

// Lookup queries the web service through the circuit breaker.
func (p *MaxMindProvider) Lookup(ctx context.Context, ip string) (*models.Geolocation, error) {
	if !p.Available() {
		return nil, fmt.Errorf("MaxMind credentials not configured")
	}
	return p.breaker.Execute(func() (*models.Geolocation, error) {
		return p.query(ctx, ip)
	})
}

func (p *MaxMindProvider) query(ctx context.Context, ip string) (*models.Geolocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+ip, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Account ID is the username, license key the password.
	req.SetBasicAuth(p.accountID, p.licenseKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query MaxMind: %w", err)
	}
	defer resp.Body.Close()

	if err := checkMaxMindResponse(resp); err != nil {
		return nil, err
	}

	var result maxMindResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode MaxMind response: %w", err)
	}
	return convertMaxMindResponse(&result, ip), nil
}

func checkMaxMindResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errResp maxMindErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		if errResp.Code == "IP_ADDRESS_NOT_FOUND" || errResp.Code == "IP_ADDRESS_RESERVED" {
			return fmt.Errorf("%w: %s", ErrNotFound, errResp.Error)
		}
		return fmt.Errorf("MaxMind error (%s): %s", errResp.Code, errResp.Error)
	}
	return fmt.Errorf("MaxMind returned status %d", resp.StatusCode)
}

func convertMaxMindResponse(r *maxMindResponse, ip string) *models.Geolocation {
	geo := &models.Geolocation{
		IPAddress:   ip,
		Country:     r.Country.Names["en"],
		CountryCode: r.Country.ISOCode,
		City:        r.City.Names["en"],
		Latitude:    r.Location.Latitude,
		Longitude:   r.Location.Longitude,
		Timezone:    r.Location.TimeZone,
		ISP:         r.Traits.ISP,
		Provider:    "maxmind",
		LastUpdated: time.Now().UTC(),
	}
	if geo.ISP == "" {
		geo.ISP = r.Traits.Organization
	}
	if len(r.Subdivisions) > 0 {
		geo.Region = r.Subdivisions[0].Names["en"]
	}
	return geo
}
