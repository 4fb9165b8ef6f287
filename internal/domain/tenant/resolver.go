package tenant

import (
	"strings"

	"github.com/varejo/backend/internal/domain/shared"
)

// Source identifies where a tenant identifier was resolved from
type Source string

const (
	SourceHeader    Source = "header"
	SourceSubdomain Source = "subdomain"
	SourceClaim     Source = "claim"
	SourceDefault   Source = "default"
)

// Request carries the raw tenant hints extracted from an incoming request.
// Empty fields mean the hint was absent.
type Request struct {
	Header string // explicit tenant header value
	Host   string // request host, used for subdomain extraction
	Claim  string // tenant claim from a verified identity token
}

// Resolution is the outcome of resolving a tenant for a request
type Resolution struct {
	TenantID string
	Source   Source
}

// Resolver resolves and normalizes tenant identifiers.
// Precedence: header > subdomain > token claim > configured default.
type Resolver struct {
	baseDomain    string
	defaultTenant string
}

// NewResolver creates a Resolver. baseDomain enables subdomain extraction when
// non-empty (e.g. "varejo.app"); defaultTenant may be empty, in which case
// requests without any hint fail with ErrTenantNotIdentified.
func NewResolver(baseDomain, defaultTenant string) *Resolver {
	return &Resolver{
		baseDomain:    strings.ToLower(strings.TrimSpace(baseDomain)),
		defaultTenant: Normalize(defaultTenant),
	}
}

// Resolve applies the precedence order and returns the normalized tenant
// identifier together with the source it came from.
func (r *Resolver) Resolve(req Request) (Resolution, error) {
	if id := Normalize(req.Header); id != "" {
		return Resolution{TenantID: id, Source: SourceHeader}, nil
	}

	if r.baseDomain != "" {
		if id := Normalize(subdomain(req.Host, r.baseDomain)); id != "" {
			return Resolution{TenantID: id, Source: SourceSubdomain}, nil
		}
	}

	if id := Normalize(req.Claim); id != "" {
		return Resolution{TenantID: id, Source: SourceClaim}, nil
	}

	if r.defaultTenant != "" {
		return Resolution{TenantID: r.defaultTenant, Source: SourceDefault}, nil
	}

	return Resolution{}, shared.ErrTenantNotIdentified
}

// Normalize canonicalizes a raw tenant identifier: lower-cased, runs of
// non-alphanumeric characters collapsed to a single hyphen, leading and
// trailing hyphens trimmed. Returns "" if nothing survives.
func Normalize(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	pendingHyphen := false
	for _, r := range raw {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// subdomain extracts the first subdomain label from host given a base domain.
// "padaria-centro.varejo.app" with base "varejo.app" yields "padaria-centro".
func subdomain(host, baseDomain string) string {
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	host = strings.ToLower(host)

	if !strings.HasSuffix(host, "."+baseDomain) {
		return ""
	}

	prefix := strings.TrimSuffix(host, "."+baseDomain)
	if prefix == "" || prefix == "www" {
		return ""
	}

	parts := strings.Split(prefix, ".")
	return parts[0]
}
