package domain

import "strings"

const (
	minNamespaceLen = 3
	namespacePrefix = "id-"
)

// TenantNamespace is the sanitized key prefix under which one tenant's
// objects are stored.
type TenantNamespace string

func (n TenantNamespace) String() string {
	return string(n)
}

// KeyPrefix is the listing prefix for the namespace, always ending in "/".
func (n TenantNamespace) KeyPrefix() string {
	return string(n) + "/"
}

// ObjectKey places filename under the namespace. The filename is kept verbatim.
func (n TenantNamespace) ObjectKey(filename string) string {
	return n.KeyPrefix() + filename
}

// Resolve turns an arbitrary tenant identifier into a namespace made of
// lowercase alphanumerics separated by single hyphens. It never fails.
func Resolve(raw string) TenantNamespace {
	lowered := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lowered))
	lastHyphen := true // suppresses leading hyphens
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	out := strings.TrimSuffix(b.String(), "-")
	if len(out) < minNamespaceLen {
		out = namespacePrefix + out
	}
	return TenantNamespace(out)
}
