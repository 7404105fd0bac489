package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mapstick/pkg/logging"
)

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Params_Sorted_Long_Dropped",
			input: `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Camera fly-in" mode=transitioning_orbit lon=7.447 lat=46.948 animation=3 session=0b7c6f7e-2d55-4a8e-9b1b-2f0e3a1c9d44`,
			want:  "06:50:46 Camera fly-in (animation=3, lat=46.948, lon=7.447, mode=transitioning_orbit)",
		},
		{
			name:  "No_Params",
			input: `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Orbit active"`,
			want:  "06:50:46 Orbit active",
		},
		{
			name:  "Warning_Tagged",
			input: `time=2026-01-18T06:50:46.074+01:00 level=WARN msg="Geolocation failed" reason=timeout`,
			want:  "06:50:46 WARN Geolocation failed (reason=timeout)",
		},
		{
			name:  "Unstructured",
			input: "plain text",
			want:  "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLogLine(tt.input); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestHandleLatestLog(t *testing.T) {
	_, _ = logging.GlobalLogCapture.Write([]byte(`time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Profile swapped" name=southpaw` + "\n"))
	_, _ = logging.GlobalEventCapture.Write([]byte("[2026-01-18 06:50:46] [mode] orbit_active - from transitioning_orbit\n"))

	rec := httptest.NewRecorder()
	handleLatestLog(rec, httptest.NewRequest(http.MethodGet, "/api/log/latest", nil))

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if body["log"] != "06:50:46 Profile swapped (name=southpaw)" {
		t.Errorf("unexpected log %q", body["log"])
	}
	if body["event"] != "[2026-01-18 06:50:46] [mode] orbit_active - from transitioning_orbit" {
		t.Errorf("unexpected event %q", body["event"])
	}
}
