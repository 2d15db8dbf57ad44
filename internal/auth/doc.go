// Package auth provides authentication and authorisation for the Gray
// Logic BACnet client API.
//
// It implements a 3-tier role model (user → admin → owner) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - JWT access/refresh token rotation with family-based theft detection
//   - Static role-permission mapping (compile-time, no database lookup)
//
// Users can read device state and history; admins can additionally write
// properties, trigger protocol operations, and manage accounts.
package auth
