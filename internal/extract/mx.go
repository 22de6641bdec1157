package extract

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"
)

// Resolver is the DNS subset used for deliverability checks; *net.Resolver satisfies it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// MXValidator drops addresses whose domain can not receive mail: no MX records and no
// A/AAAA fallback. Lookup failures other than "not found" keep the address. Results are
// cached per domain for the life of the validator.
type MXValidator struct {
	resolver Resolver
	timeout  time.Duration

	mu    sync.Mutex
	cache map[string]bool
}

// NewMXValidator wraps resolver; a nil resolver uses net.DefaultResolver.
func NewMXValidator(resolver Resolver, timeout time.Duration) *MXValidator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &MXValidator{
		resolver: resolver,
		timeout:  timeout,
		cache:    make(map[string]bool),
	}
}

// Deliverable reports whether mail for domain has somewhere to go.
func (v *MXValidator) Deliverable(ctx context.Context, domain string) bool {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	v.mu.Lock()
	ok, cached := v.cache[domain]
	v.mu.Unlock()
	if cached {
		return ok
	}

	ok = v.lookup(ctx, domain)

	v.mu.Lock()
	v.cache[domain] = ok
	v.mu.Unlock()
	return ok
}

func (v *MXValidator) lookup(ctx context.Context, domain string) bool {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	mx, err := v.resolver.LookupMX(ctx, domain)
	if err == nil && len(mx) > 0 {
		return true
	}
	if err != nil && !notFound(err) {
		return true
	}
	hosts, err := v.resolver.LookupHost(ctx, domain)
	if err != nil {
		return !notFound(err)
	}
	return len(hosts) > 0
}

func notFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
