// Package acdata is the HTTP client for the ACData research-data repository.
//
// It performs the cookie-based sign-in handshake, lists instruments, samples
// and projects, creates samples, and creates datasets by combining the
// filetree encoder with the fixed multipart framing from formbody. Calls are
// synchronous and never retried; authorization failures surface as
// AuthenticationError or APIError and are left to the caller.
package acdata
