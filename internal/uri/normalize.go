package uri

import (
	"strings"
)

const (
	ipfsScheme     = "ipfs://"
	ipfsPathMarker = "/ipfs/"
	ipfsPrefix     = "ipfs/"
)

// NormalizeHash reduces an IPFS reference to its bare content id.
// It accepts ipfs:// URIs, gateway URLs and ipfs/ paths, and removes the
// first occurrence of each strip token afterwards.
func NormalizeHash(hash string, stripTokens []string) string {
	hash = strings.TrimSpace(hash)

	hash = strings.TrimPrefix(hash, ipfsScheme)
	if idx := strings.Index(hash, ipfsPathMarker); idx >= 0 {
		hash = hash[idx+len(ipfsPathMarker):]
	}
	hash = strings.TrimPrefix(hash, ipfsPrefix)

	for _, token := range stripTokens {
		if token == "" {
			continue
		}
		hash = strings.Replace(hash, token, "", 1)
	}

	return strings.TrimSpace(hash)
}

// JoinGateway appends a content id to a gateway base url.
// Bases ending in "/" or "=" (query style endpoints) are used as is.
func JoinGateway(base string, hash string) string {
	if base == "" {
		return hash
	}
	if !strings.HasSuffix(base, "/") && !strings.HasSuffix(base, "=") {
		base += "/"
	}
	return base + strings.TrimPrefix(hash, "/")
}
