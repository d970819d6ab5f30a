// Package sparkid is the hosted identity backend. Sign-in and registration
// exchange credentials for an RS256 token, which is verified against the
// service JWKS before any identity is trusted locally.
package sparkid
