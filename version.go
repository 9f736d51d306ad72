package holon

// Version is the release of this build. Release builds override it with
// -ldflags "-X github.com/aretw0/holon.Version=...".
var Version = "v0.4.0-dev"
