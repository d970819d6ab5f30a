// Package localauth is a self-contained identity provider backed by a local
// credential table. It is the demo-mode backend: registration verifies
// immediately, federated sign-in yields deterministic demo identities, and
// session-changed events fire synchronously.
package localauth
