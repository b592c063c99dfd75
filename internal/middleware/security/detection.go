package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"moneytracker/internal/log"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// Detector flags probing requests and resolves client addresses behind
// trusted proxies.
type Detector struct {
	suspicious     atomic.Int64
	blocked        atomic.Int64
	trustedProxies []*net.IPNet
}

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	suspiciousAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan",
	}
	blockedMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

const maxURLLength = 2048

func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
			parseCIDR("::1/128"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// DetectSuspiciousRequest reports probing paths, scanner user agents,
// debugging methods and oversized URLs.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if d.isSuspicious(r) {
		d.suspicious.Add(1)
		return true
	}
	return false
}

func (d *Detector) isSuspicious(r *http.Request) bool {
	if blockedMethods[r.Method] || len(r.URL.String()) > maxURLLength {
		return true
	}

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return true
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return true
		}
	}

	if xff := r.Header.Get("X-Forwarded-For"); strings.Count(xff, ",") > 5 {
		return true
	}
	return false
}

// ExtractClientIP returns the forwarded client address when the direct peer
// is a trusted proxy, else the peer address.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		BlockedRequests:    d.blocked.Load(),
	}
}

// Middleware logs suspicious requests and rejects the debugging methods
// outright.
func (d *Detector) Middleware(logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentSecurity)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d.DetectSuspiciousRequest(r) {
				logger.WarnContext(r.Context(), "Suspicious request",
					log.NewFields().
						WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
						WithClientIP(d.ExtractClientIP(r)).
						ToSlice()...)
				if blockedMethods[r.Method] {
					d.blocked.Add(1)
					http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
