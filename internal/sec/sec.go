// Package sec provides the authentication and authorization boundary of the
// HTTP API.
//
// # Authentication
//
// Authentication uses HTTP Basic Auth. Credentials are validated against
// bcrypt password hashes stored in the database on every request; there is no
// session state.
//
// IMPORTANT: Basic Auth transmits credentials in base64 encoding (not encrypted).
// TLS must be used in production to protect credentials in transit.
//
// # Authorization
//
// Authorization is an ordered list of [Rule] values evaluated by [Policy].
// The first rule whose pattern matches the request wins; if none match, the
// request is denied.
//
// # Components
//
//   - [Hasher]: bcrypt password hashing and verification
//   - [Provider]: resolves a [Principal] from the credential store
//   - [Policy]: first-match-wins access rule interpreter
//   - [Gate]: per-request state machine combining the above, as echo middleware
//   - [GetPrincipal], [SetPrincipal]: context accessors for the resolved principal
package sec
