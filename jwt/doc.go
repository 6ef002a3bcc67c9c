// Package jwt mints and verifies the session tokens handed out by the mock credential
// gateway. Callers outside the gateway must treat tokens as opaque strings.
package jwt
