package ingest

import (
	"net"
	"strings"
)

// TenantKey maps a request host to a tenant key. The bare root domain, its
// www variant and any host outside the root domain belong to the root tenant;
// otherwise the leftmost label is the key.
func TenantKey(host, rootDomain, rootTenant string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if hostOnly, _, err := net.SplitHostPort(h); err == nil {
		h = hostOnly
	}
	h = strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
	h = strings.TrimSuffix(h, ".")

	root := strings.TrimSuffix(strings.ToLower(rootDomain), ".")
	if h == root || h == "www."+root || !strings.HasSuffix(h, "."+root) {
		return rootTenant
	}

	label, _, _ := strings.Cut(strings.TrimSuffix(h, "."+root), ".")
	if label == "" {
		return rootTenant
	}
	return label
}
