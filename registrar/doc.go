// Package registrar implements the lifecycle registrar: time-bounded,
// renewable and reclaimable ownership of labels directly under one base node.
//
// A token (the label hash) moves through
//
//	live:        now <  expires
//	in grace:    expires <= now < expires + grace period
//	reclaimable: now >= expires + grace period
//
// While a token is live or in grace only its incumbent holder can register it
// again. Once reclaimable, the first valid caller wins. Every change of holder
// is mirrored into the namespace registry under the base node, which the
// registrar must own.
//
// The grace period is configuration, not a constant of the code: the first
// generation ran with GracePeriodV1 and its successor with GracePeriodV2. A
// registrar configured with a Predecessor inherits the entries it has not
// overwritten, so holders keep their names across a migration.
package registrar
