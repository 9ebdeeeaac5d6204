package coursehttp

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPFunc determines the client IP used for rate limiting and
// session metadata. An empty return means "unknown" and makes rate
// limiting fail open for that request.
type ClientIPFunc func(r *http.Request) string

// DefaultClientIP uses RemoteAddr directly. Private and loopback peers
// return "" so a reverse proxy is never rate-limited as one client.
func DefaultClientIP() ClientIPFunc {
	return func(r *http.Request) string {
		ip := remoteIP(r)
		if ip == "" {
			return ""
		}
		addr, err := netip.ParseAddr(ip)
		if err != nil || !isPublicAddr(addr) {
			return ""
		}
		return addr.String()
	}
}

// ClientIPFromForwardedHeaders trusts X-Forwarded-For only when the
// immediate peer is inside trustedProxies; otherwise it behaves like
// DefaultClientIP.
func ClientIPFromForwardedHeaders(trustedProxies []netip.Prefix) ClientIPFunc {
	return func(r *http.Request) string {
		peer := remoteIP(r)
		peerAddr, err := netip.ParseAddr(peer)
		if err != nil {
			return ""
		}
		for _, p := range trustedProxies {
			if !p.Contains(peerAddr) {
				continue
			}
			v := r.Header.Get("X-Forwarded-For")
			// Left-most entry is the original client.
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			if a, err := netip.ParseAddr(strings.TrimSpace(v)); err == nil && isPublicAddr(a) {
				return a.String()
			}
			break
		}
		if isPublicAddr(peerAddr) {
			return peerAddr.String()
		}
		return ""
	}
}

func remoteIP(r *http.Request) string {
	if r == nil || r.RemoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func isPublicAddr(a netip.Addr) bool {
	if !a.IsValid() || a.IsUnspecified() {
		return false
	}
	if a.IsLoopback() || a.IsPrivate() || a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() || a.IsMulticast() {
		return false
	}
	return true
}
