// Package sessions implements credential issuance and session lifecycle:
// local login, registration with email confirmation, short lived signed
// access tokens, a rotating ledger of revocable refresh tokens, and
// federated login bridged into local accounts.
//
// The package is storage agnostic behind a RepositoryManager and exposes
// an HTTP controller the host application mounts on a router.
package sessions
