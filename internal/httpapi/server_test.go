package httpapi

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		defaultValue int
		minValue     int
		maxValue     int
		want         int
		wantErr      bool
	}{
		{name: "empty uses default", raw: "", defaultValue: 50, minValue: 1, maxValue: 200, want: 50},
		{name: "valid value", raw: "25", defaultValue: 50, minValue: 1, maxValue: 200, want: 25},
		{name: "whitespace trimmed", raw: " 10 ", defaultValue: 50, minValue: 1, maxValue: 200, want: 10},
		{name: "not a number", raw: "abc", defaultValue: 50, minValue: 1, maxValue: 200, wantErr: true},
		{name: "below minimum", raw: "0", defaultValue: 50, minValue: 1, maxValue: 200, wantErr: true},
		{name: "above maximum", raw: "500", defaultValue: 50, minValue: 1, maxValue: 200, wantErr: true},
		{name: "zero allowed when min is zero", raw: "0", defaultValue: 0, minValue: 0, maxValue: 100, want: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := parsePositiveInt(tc.raw, tc.defaultValue, tc.minValue, tc.maxValue)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parsePositiveInt(%q) expected error, got %d", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePositiveInt(%q) error = %v", tc.raw, err)
			}
			if got != tc.want {
				t.Errorf("parsePositiveInt(%q) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNewServerAppliesDefaults(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, nil, zerolog.Nop(), Options{})

	if server.opts.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", server.opts.Host)
	}
	if server.opts.Port != 8095 {
		t.Errorf("Port = %d, want 8095", server.opts.Port)
	}
	if server.opts.SessionCookie != "showpipe_session" {
		t.Errorf("SessionCookie = %q, want showpipe_session", server.opts.SessionCookie)
	}
	if server.opts.SessionTTL <= 0 {
		t.Errorf("SessionTTL = %v, want positive", server.opts.SessionTTL)
	}
	if len(server.opts.AllowedOrigins) == 0 {
		t.Error("AllowedOrigins must default to a wildcard")
	}
}
