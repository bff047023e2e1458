package models

import (
	"fmt"
	"time"
)

// ProxyCandidate is a raw, unvalidated egress endpoint as reported by a
// proxy source. It carries no health information.
type ProxyCandidate struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"` // "http" or "socks5"
	Source   string `json:"source"`
}

// Key returns the pool identity of the candidate ("host:port").
func (c ProxyCandidate) Key() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProxyRecord is a validated egress endpoint in the pool's working set.
// A record only exists after the candidate passed a health probe.
type ProxyRecord struct {
	Host        string        `json:"host"`
	Port        int           `json:"port"`
	Protocol    string        `json:"protocol"`
	Latency     time.Duration `json:"latency"`
	ValidatedAt time.Time     `json:"validated_at"`
	Source      string        `json:"source"`
}

// Key returns the pool identity of the record ("host:port").
// Records are unique by Key within the working set.
func (r *ProxyRecord) Key() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// URL returns the record as a proxy URL, e.g. "socks5://10.0.0.1:1080".
func (r *ProxyRecord) URL() string {
	proto := r.Protocol
	if proto == "" {
		proto = "http"
	}
	return fmt.Sprintf("%s://%s:%d", proto, r.Host, r.Port)
}

// PoolStats is a snapshot of the proxy pool's current state.
type PoolStats struct {
	Available int `json:"available"`
	Leased    int `json:"leased"`
}
