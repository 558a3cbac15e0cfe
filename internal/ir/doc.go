// Package ir provides the canonical representation shared by the explorer,
// the ticket store and the harness.
//
// It contains no exploration logic. Other internal packages import ir; ir
// imports nothing internal, so it stays the foundational layer.
//
// Key design constraints:
//   - Canonical JSON (RFC 8785 subset) is the only encoding used to compute
//     content-addressed identities
//   - No floats and no nulls in canonical values
//   - Strings are NFC normalized before hashing
package ir
