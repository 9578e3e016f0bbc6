package storage

import "testing"

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		useSSL   bool
		want     string
	}{
		{"bare host with ssl", "minio.internal:9000", true, "https://minio.internal:9000"},
		{"bare host without ssl", "minio.internal:9000", false, "http://minio.internal:9000"},
		{"explicit https kept", "https://s3.example.com", false, "https://s3.example.com"},
		{"explicit http kept", "http://localhost:9000", true, "http://localhost:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := endpointURL(tt.endpoint, tt.useSSL); got != tt.want {
				t.Errorf("endpointURL(%q, %v) = %q, want %q", tt.endpoint, tt.useSSL, got, tt.want)
			}
		})
	}
}
