// Package portal implements the identity-to-subscription provisioning engine.
//
// It resolves verified identities to control plane accounts, enforces
// subscription ownership, provisions subscriptions and group memberships,
// rotates keys, filters service updates by role and runs the onboarding
// workflow on the first subscription of an account.
//
// Every error returned by the Service carries an apperr.Kind.
package portal
