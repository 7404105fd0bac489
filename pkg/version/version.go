package version

// Version is the current application version. Release builds override it
// with -ldflags "-X mapstick/pkg/version.Version=...".
var Version = "v0.3.0"
