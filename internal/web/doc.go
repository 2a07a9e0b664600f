// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package web is the JSON HTTP API.
//
// Handlers decode the request, call the auth or listing service and write
// either the result or the error envelope
//
//	{"success": false, "statusCode": 403, "message": "..."}
//
// whose status comes from errutil.HTTPStatus. Mutating routes run behind the
// session guard, which reads the access_token cookie.
package web
