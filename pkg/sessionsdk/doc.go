// Package sessionsdk is the Go client for the session daemon's HTTP API.
//
// It covers the full API surface: issuing session pairs for authenticated
// principals, refreshing and revoking sessions, identity lookup via whoami,
// and the health probes. The request/response types in this package are also
// used by the server handlers, so wire compatibility is guaranteed by
// construction.
//
// Issuing sessions and revoking all sessions of a principal are privileged
// operations; set Client.APIKey for those.
package sessionsdk
