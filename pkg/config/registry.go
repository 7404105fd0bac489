package config

// Persistent state keys (Registry)
const (
	KeyProfileName      = "profile_name"
	KeyProfilePreset    = "profile_preset"
	KeyHighPitch        = "high_pitch"
	KeyFlightMode       = "flight_mode"
	KeyGeolocateZoom    = "geolocate_zoom"
	KeyGeolocateTimeout = "geolocate_timeout"
	KeyOrbitSpeed       = "orbit_speed"
)
