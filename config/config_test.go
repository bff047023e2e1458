package config

import (
	"testing"
	"time"
)

func TestValidateBookingURL_Valid(t *testing.T) {
	valid := []string{
		"https://wafid.com/book-appointment",
		"http://localhost:8000/booking",
		"https://booking.example.com/appointments",
		"https://medical-center.org/book",
	}
	for _, u := range valid {
		if err := ValidateBookingURL(u); err != nil {
			t.Errorf("ValidateBookingURL(%q) = %v, want nil", u, err)
		}
	}
}

func TestValidateBookingURL_Invalid(t *testing.T) {
	invalid := []string{
		"",                     // empty
		"wafid.com/book",       // missing protocol
		"ftp://wafid.com/book", // wrong protocol
		"https://",             // missing domain
		"https:// wafid.com",   // space in URL
		"not a url",            // invalid format
	}
	for _, u := range invalid {
		if err := ValidateBookingURL(u); err == nil {
			t.Errorf("ValidateBookingURL(%q) = nil, want error", u)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Booking.URL != "https://wafid.com/book-appointment/" {
		t.Errorf("Booking.URL = %q", cfg.Booking.URL)
	}
	if cfg.Booking.MaxAttempts != 30 {
		t.Errorf("Booking.MaxAttempts = %d, want 30", cfg.Booking.MaxAttempts)
	}
	if cfg.Proxy.RefillThreshold != 5 {
		t.Errorf("Proxy.RefillThreshold = %d, want 5", cfg.Proxy.RefillThreshold)
	}
	if cfg.Proxy.ProbeTimeout != 8*time.Second {
		t.Errorf("Proxy.ProbeTimeout = %v, want 8s", cfg.Proxy.ProbeTimeout)
	}
	if len(cfg.Proxy.Sources) == 0 {
		t.Error("Proxy.Sources should have defaults")
	}
	if !cfg.Browser.Headless {
		t.Error("Browser.Headless should default to true")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WAFID_PORT", "9090")
	t.Setenv("WAFID_BOOKING_URL", "https://staging.wafid.com/book")
	t.Setenv("WAFID_MAX_ATTEMPTS", "7")
	t.Setenv("WAFID_RETRY_INTERVAL", "500ms")
	t.Setenv("WAFID_CENTER_KEYS", "center, clinic")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Booking.URL != "https://staging.wafid.com/book" {
		t.Errorf("Booking.URL = %q", cfg.Booking.URL)
	}
	if cfg.Booking.MaxAttempts != 7 {
		t.Errorf("Booking.MaxAttempts = %d, want 7", cfg.Booking.MaxAttempts)
	}
	if cfg.Booking.RetryInterval != 500*time.Millisecond {
		t.Errorf("Booking.RetryInterval = %v, want 500ms", cfg.Booking.RetryInterval)
	}
	if len(cfg.Booking.CenterKeys) != 2 || cfg.Booking.CenterKeys[1] != "clinic" {
		t.Errorf("Booking.CenterKeys = %v", cfg.Booking.CenterKeys)
	}
}

func TestLoad_RejectsBadBookingURL(t *testing.T) {
	t.Setenv("WAFID_BOOKING_URL", "ftp://wafid.com/book")
	if _, err := Load(); err == nil {
		t.Error("Load should refuse a non-http booking URL")
	}
}
