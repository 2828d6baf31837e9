// Package main (cmd/registry_client) is a command-line client for the
// namespace registry HTTP API.
//
// Read commands need only --server-addr. Write commands sign the request body
// with --key (or REGISTRY_KEY), and the recovered address is the caller for
// every authorization check.
//
// Nodes may be given either as a 32-byte hex hash or as a dotted name, which
// is namehashed locally:
//
//	registry_client name alice.web3 --text url
//	registry_client --key=$KEY register alice --duration=8760h --resolver=0x... --addr=self --reverse
//	registry_client --key=$KEY set-text alice.web3 url https://alice.example
//	registry_client --key=$KEY set-subnode alice.web3 www --owner=0x...
//
// Responses are printed as JSON.
package main
