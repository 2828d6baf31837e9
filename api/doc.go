// Package api defines the JSON wire types of the registry HTTP API.
//
// Reads are plain GET requests. Writes are POST requests whose JSON body is
// signed with the caller's key; the signature travels in the
// X-Flashbots-Signature header and the recovered signer is the caller of the
// underlying operation. The clients subpackage implements both sides of that
// contract for Go callers.
package api
