// Package policy decides which upstream hosts the relay may contact.
package policy

import "net/url"

// Allowlist is a set of hostnames the relay is permitted to fetch from.
// An empty allowlist permits every host.
type Allowlist struct {
	hosts map[string]bool
}

// New creates an Allowlist from a list of hostnames. Empty entries are
// ignored; matching is exact and case-sensitive on the parsed hostname.
func New(hosts []string) *Allowlist {
	set := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if h != "" {
			set[h] = true
		}
	}
	return &Allowlist{hosts: set}
}

// Empty reports whether the allowlist permits every host.
func (a *Allowlist) Empty() bool {
	return len(a.hosts) == 0
}

// Len returns the number of configured hosts.
func (a *Allowlist) Len() int {
	return len(a.hosts)
}

// AllowsHost reports whether the given hostname may be contacted.
func (a *Allowlist) AllowsHost(host string) bool {
	if len(a.hosts) == 0 {
		return true
	}
	return a.hosts[host]
}

// AllowsURL reports whether the URL's host may be contacted. A URL that
// fails to parse is denied; it is never dereferenced.
func (a *Allowlist) AllowsURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return a.AllowsHost(u.Hostname())
}
