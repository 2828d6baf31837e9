// Package resolver stores per-node resolution data: an address, text
// records, a content hash and a canonical name.
//
// Writes are authorized against the namespace registry on every call. The
// registry owner of the node may write, as may the two collaborators trusted at
// initialization (the registration controller and the reverse registrar).
// Reads are unrestricted. Records outlive ownership changes; ClearRecords
// drops them explicitly by moving the node to a fresh record version.
package resolver
