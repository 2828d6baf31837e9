// Package main (cmd/admin) implements the administrator client of the
// namespace registry.
//
// Commands:
//
//	generate-key        - Create a secp256k1 key and print its address
//	upgrade             - Switch the controller to the V2 implementation and registrar
//	initialize-v2       - Point an already upgraded controller at a registrar
//	transfer-ownership  - Hand the controller administration to another address
//	withdraw            - Sweep the controller's native balance (V1 only)
//	recover-funds       - Move an asset held by the controller
//	mint                - Create native balance (deployer only)
//	snapshot            - Store the full chain state in the server's storage
//
// Every command except generate-key signs its request with --key, which must
// belong to the relevant administrator.
//
// Example workflow:
//
//  1. Generate the deployer key and start the server with it:
//     admin generate-key --key-file=deployer.key
//     httpserver --deployer-key=deployer.key
//
//  2. Later, migrate the controller and take a snapshot:
//     admin --key=deployer.key upgrade
//     admin --key=deployer.key snapshot
package main
