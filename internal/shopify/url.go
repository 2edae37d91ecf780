package shopify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL means the input is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrUnsupportedPlatform means the URL does not look like a Shopify storefront.
	ErrUnsupportedPlatform = errors.New("unsupported e-commerce platform")
)

const (
	dataSuffix  = ".json"
	productPath = "/products/"
)

var platformHosts = []string{"myshopify.com", "shopify.com"}

// IsShopifyURL reports whether raw points at a Shopify storefront: either the
// host belongs to Shopify or the path has the /products/ segment. It never
// touches the network.
func IsShopifyURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range platformHosts {
		if strings.Contains(host, suffix) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(u.Path), productPath)
}

// ToDataEndpoint converts a product page URL into its .json data endpoint.
// Query and fragment are dropped, a trailing slash is removed, and ".json" is
// appended unless already present. Percent-encoding in the path is kept as
// given. The transform is idempotent; input that does not parse is returned
// unchanged.
func ToDataEndpoint(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	// Work on the escaped form so encoded slashes in a handle survive.
	escaped := strings.TrimRight(u.EscapedPath(), "/")
	if !strings.HasSuffix(escaped, dataSuffix) {
		escaped += dataSuffix
	}
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return raw
	}
	u.Path = path
	u.RawPath = escaped
	return u.String()
}

// ValidateProductURL checks that raw is an absolute http(s) URL on a Shopify
// storefront.
func ValidateProductURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if !IsShopifyURL(raw) {
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, u.Host)
	}
	return nil
}

// StoreRoot returns scheme://host for a storefront URL.
func StoreRoot(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u.Scheme + "://" + u.Host, nil
}
