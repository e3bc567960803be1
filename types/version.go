package types

// Version is the canonical project version.
// The CLI and the HTTP API report this constant.
const Version = "0.3.0"
