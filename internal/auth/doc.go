// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package auth owns user identity: accounts, password digests, session
// tokens, and the checks that gate every mutation.
//
// # Flow
//
// A request carrying a session cookie passes through Guard.Authenticate,
// which yields the caller's ID. Mutations then call RequireOwner before any
// store write. Profile edits go through Service.UpdateUser, which stages
// only the fields that changed, hashes a new password, and rejects empty
// diffs with errutil.ErrNoChanges.
//
// # Sessions
//
// Session tokens are stateless HS256 JWTs. There is no server-side session
// table, so a token stays valid until it expires or the secret rotates.
// Signing out and deleting an account only clear the cookie.
//
// # Errors
//
// Every failure carries an oops code and unwraps to one errutil kind.
// Unknown email and wrong password are both errutil.ErrInvalidCredentials.
package auth
