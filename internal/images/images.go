// Package images resolves search queries to picture bytes for document
// generation. Lookups are best effort: any failure returns ok=false and
// the caller degrades to a text placeholder.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const searchTimeout = 30 * time.Second

// Provider searches a configured image source.
type Provider struct {
	source      string
	unsplashKey string
	pexelsKey   string
	client      *http.Client
	log         *slog.Logger

	// overridable in tests
	unsplashBase string
	pexelsBase   string
}

// New builds a provider for the configured source ("unsplash" or
// "pexels").
func New(source, unsplashKey, pexelsKey string, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	return &Provider{
		source:       strings.ToLower(strings.TrimSpace(source)),
		unsplashKey:  unsplashKey,
		pexelsKey:    pexelsKey,
		client:       &http.Client{Timeout: searchTimeout},
		log:          log,
		unsplashBase: "https://api.unsplash.com",
		pexelsBase:   "https://api.pexels.com",
	}
}

// SearchURL resolves a query to a picture URL via the configured
// source.
func (p *Provider) SearchURL(ctx context.Context, query string) (string, bool) {
	switch p.source {
	case "unsplash":
		return p.searchUnsplash(ctx, query)
	case "pexels":
		return p.searchPexels(ctx, query)
	case "":
		return "", false
	}
	p.log.Warn("unknown image source", "source", p.source)
	return "", false
}

func (p *Provider) searchUnsplash(ctx context.Context, query string) (string, bool) {
	if p.unsplashKey == "" {
		p.log.Warn("unsplash access key not set")
		return "", false
	}
	u := fmt.Sprintf("%s/search/photos?query=%s&per_page=1&orientation=landscape",
		p.unsplashBase, url.QueryEscape(query))
	var wire struct {
		Results []struct {
			URLs struct {
				Regular string `json:"regular"`
			} `json:"urls"`
		} `json:"results"`
	}
	if !p.getJSON(ctx, u, "Client-ID "+p.unsplashKey, &wire) {
		return "", false
	}
	if len(wire.Results) == 0 {
		return "", false
	}
	return wire.Results[0].URLs.Regular, true
}

func (p *Provider) searchPexels(ctx context.Context, query string) (string, bool) {
	if p.pexelsKey == "" {
		p.log.Warn("pexels access key not set")
		return "", false
	}
	u := fmt.Sprintf("%s/v1/search?query=%s&per_page=1&orientation=landscape",
		p.pexelsBase, url.QueryEscape(query))
	var wire struct {
		Photos []struct {
			Src struct {
				Large string `json:"large"`
			} `json:"src"`
		} `json:"photos"`
	}
	if !p.getJSON(ctx, u, p.pexelsKey, &wire) {
		return "", false
	}
	if len(wire.Photos) == 0 {
		return "", false
	}
	return wire.Photos[0].Src.Large, true
}

func (p *Provider) getJSON(ctx context.Context, u, auth string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", auth)
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("image search failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.log.Warn("image search failed", "status", resp.StatusCode)
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		p.log.Warn("image search response unreadable", "error", err)
		return false
	}
	return true
}

// Fetch searches for the query and downloads the resulting picture.
// The returned format is "png" or "jpeg" from the response content
// type.
func (p *Provider) Fetch(ctx context.Context, query string) ([]byte, string, bool) {
	picURL, ok := p.SearchURL(ctx, query)
	if !ok {
		return nil, "", false
	}
	req, err := http.NewRequestWithContext(ctx, "GET", picURL, nil)
	if err != nil {
		return nil, "", false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("image download failed", "error", err)
		return nil, "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.log.Warn("image download failed", "status", resp.StatusCode)
		return nil, "", false
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return nil, "", false
	}
	format := "jpeg"
	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "png") || strings.HasSuffix(strings.ToLower(picURL), ".png") {
		format = "png"
	}
	return data, format, true
}

// Fetcher adapts the provider to the generator callback shape.
func (p *Provider) Fetcher(ctx context.Context) func(query string) ([]byte, string, bool) {
	return func(query string) ([]byte, string, bool) {
		return p.Fetch(ctx, query)
	}
}
