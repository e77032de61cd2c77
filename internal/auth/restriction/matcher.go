// Package restriction evaluates the per-key access restrictions an API key
// record may carry: referrer glob patterns and client IP ranges.
//
// Both checks are total. A malformed pattern or range never matches and never
// returns an error, so a bad record can only narrow access, not break it.
package restriction

import (
	"net/netip"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Matcher evaluates restrictions. Compiled glob patterns are memoized; the
// zero value is not usable, use New.
type Matcher struct {
	globs sync.Map // pattern -> glob.Glob (nil when the pattern is malformed)
}

// New returns a Matcher with an empty pattern cache.
func New() *Matcher {
	return &Matcher{}
}

// MatchesReferrer passes when patterns is empty, or when referrer is present
// and matches at least one pattern. '*' matches any run of characters
// including '/', '?' matches exactly one.
func (m *Matcher) MatchesReferrer(referrer string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	if referrer == "" {
		return false
	}
	for _, pattern := range patterns {
		g := m.compile(pattern)
		if g != nil && g.Match(referrer) {
			return true
		}
	}
	return false
}

// MatchesIP passes when ranges is empty, or when ip is present and falls
// inside at least one range. A range is a CIDR prefix or a single address.
func (m *Matcher) MatchesIP(ip string, ranges []string) bool {
	if len(ranges) == 0 {
		return true
	}
	addr, ok := parseAddr(ip)
	if !ok {
		return false
	}
	for _, r := range ranges {
		if inRange(addr, r) {
			return true
		}
	}
	return false
}

func (m *Matcher) compile(pattern string) glob.Glob {
	if cached, ok := m.globs.Load(pattern); ok {
		g, _ := cached.(glob.Glob)
		return g
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		m.globs.Store(pattern, nil)
		return nil
	}
	m.globs.Store(pattern, g)
	return g
}

func parseAddr(ip string) (netip.Addr, bool) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func inRange(addr netip.Addr, r string) bool {
	r = strings.TrimSpace(r)
	if strings.Contains(r, "/") {
		prefix, err := netip.ParsePrefix(r)
		if err != nil {
			return false
		}
		prefix = prefix.Masked()
		if prefix.Addr().Is4In6() {
			bits := prefix.Bits() - 96
			if bits < 0 {
				return false
			}
			prefix = netip.PrefixFrom(prefix.Addr().Unmap(), bits)
		}
		return prefix.Contains(addr)
	}
	single, ok := parseAddr(r)
	if !ok {
		return false
	}
	return single == addr
}
