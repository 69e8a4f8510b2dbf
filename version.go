package lattice

// Version is the library release, surfaced by the CLI and the HTTP/MCP
// adapters.
var Version = "0.3.0"
