// Package controller implements the registration controller: the façade that
// registers a name, writes its resolver records and sets the registrant's
// reverse record as one atomic call.
//
// Two implementations sit in the gateway catalogue. TagV1 exposes Withdraw,
// sweeping the controller's native balance to the administrator. TagV2 drops
// Withdraw and adds InitializeV2, a one-time migration that swaps the base
// registrar. Calling an operation the bound implementation does not expose
// fails with interfaces.ErrUnsupportedOperation, never ErrUnauthorized.
package controller
