// Package main (cmd/httpserver) runs the namespace registry server.
//
// On start the server deploys the registry, registrar, resolver, reverse
// registrar, native ledger and upgradeable controller onto an in-process
// chain, administered by --deployer-key. If --restore-snapshot is given the
// snapshot is fetched from the --storage backends and installed before any
// request is served.
//
// The HTTP API is served on --listen-addr, Prometheus metrics on
// --metrics-addr, and a read-only DNS TXT gateway on --dns-addr when set. On
// SIGINT or SIGTERM the servers are drained and, with storage configured, a
// final snapshot is stored and its id logged.
//
// Example:
//
//	httpserver --deployer-key=$DEPLOYER_KEY \
//	    --listen-addr=0.0.0.0:8080 \
//	    --dns-addr=0.0.0.0:5353 \
//	    --storage=file:///var/lib/namespace-registry \
//	    --storage='s3://snapshots/registry?region=eu-west-1'
package main
