// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides credential and session primitives for codenest.
//
// # Domain Types
//
// An Account is created once by AccountRepository.Create and never modified.
// Its PasswordHash is a PHC-encoded argon2id string (bcrypt hashes from
// earlier deployments are still accepted by Verify).
//
// Session tokens are HS256 JWTs carrying Claims. They are not stored
// server-side; a token is valid until its expiry.
//
// # Services
//
//   - Argon2idHasher - password hashing and verification
//   - TokenManager - session token issue and verification
//   - Authorize - pure gate decision for a presented token
//   - Service - register, login, authenticate
//
// Errors wrap the sentinels in errors.go with oops codes; classify them with
// errors.Is.
package auth
