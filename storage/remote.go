package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	"kiprej-bot/utils"
)

var privateRanges = []*net.IPNet{
	parseCIDR("10.0.0.0/8"),
	parseCIDR("172.16.0.0/12"),
	parseCIDR("192.168.0.0/16"),
	parseCIDR("127.0.0.0/8"),
	parseCIDR("169.254.0.0/16"),
	parseCIDR("0.0.0.0/8"),
	parseCIDR("::1/128"),
	parseCIDR("fc00::/7"),
	parseCIDR("fe80::/10"),
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("invalid CIDR: %s", cidr))
	}
	return network
}

// isPrivateIP checks whether an IP address is a private/reserved address.
func isPrivateIP(ip net.IP) bool {
	for _, r := range privateRanges {
		if r.Contains(ip) {
			return true
		}
	}
	return false
}

// validateExternalURL validates that a URL is safe to fetch.
func validateExternalURL(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme '%s' is not allowed; only http and https are permitted", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no hostname")
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("requests to localhost are not allowed")
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("failed to resolve hostname '%s': %v", host, err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("URL resolves to private IP address %s, which is not allowed", ip.String())
		}
	}
	return nil
}

// FetchImage downloads an image from a public URL. The caller closes the body.
// It returns the body, its content type and the file extension to store it under.
func FetchImage(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, string, string, error) {
	if err := validateExternalURL(ctx, rawURL); err != nil {
		return nil, "", "", fmt.Errorf("URL validation failed for %s: %w", rawURL, err)
	}
	return fetchImage(ctx, client, rawURL)
}

func fetchImage(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, string, string, error) {
	resp, err := Download(ctx, client, rawURL)
	if err != nil {
		return nil, "", "", err
	}
	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err := utils.ValidateImage(contentType, resp.ContentLength); err != nil {
		resp.Body.Close()
		return nil, "", "", err
	}
	return resp.Body, contentType, utils.ImageExtensions[contentType], nil
}

// Download GETs rawURL and fails on any status but 200. The caller closes
// the response body.
func Download(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download: HTTP %d", resp.StatusCode)
	}
	return resp, nil
}
