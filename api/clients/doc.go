// Package clients is a Go client for the registry HTTP API.
//
// A Client built with a private key signs every write; one built without a
// key can only read.
//
//	client := clients.NewRegistryClient("http://127.0.0.1:8080", key)
//	res, err := client.Register(ctx, api.RegisterRequest{Label: "alice", Owner: me, DurationSeconds: 86400 * 365})
//
// Errors returned by the server are *APIError values; errors.Is matches them
// against the sentinel errors in the interfaces package.
package clients
