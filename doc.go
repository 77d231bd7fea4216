// Package auth implements the authentication and impersonation core of the
// SecureAdmin backend: JWT session issuance, dual-secret signature
// verification with rotation, and the impersonation session state machine
// with its audit trail.
//
// Token lifecycle:
//   - Auther verifies credentials through an IdentityProvider and mints
//     normal-kind tokens via TokenService. Tokens are immutable bearer
//     credentials verified statelessly against a SigningKeyring snapshot.
//   - SigningKeyring.Rotate swaps the secret pair atomically; tokens signed
//     under the previous secret keep verifying until the next rotation.
//
// Impersonation:
//   - ImpersonationController.Start lets a privileged staff member act as a
//     lower-privileged user under a shorter-lived token. The open
//     ImpersonationRecord doubles as the active-session marker; its
//     store-level uniqueness settles concurrent starts. A failed audit
//     write blocks the grant; a failed audit close never blocks Stop.
//
// Activity sinks:
//   - ActivitySink is a light-weight telemetry emitter used across login and
//     impersonation flows. Sinks run best-effort (errors are logged); the
//     Impersonations store is the durable trail.
package auth
