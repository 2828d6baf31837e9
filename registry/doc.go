// Package registry implements the namespace registry: the authoritative
// mapping from node to {owner, resolver, ttl}.
//
// Authorization follows node ownership, not the contract administrator. The
// owner of a node may reassign it, point it at a resolver, change its TTL and
// create or reassign its direct children:
//
//	node := namehash.NameHash("web3")
//	child, err := reg.SetSubnodeOwner(owner, node, namehash.LabelHash("alice"), alice)
//
// Ownership is re-read from live state on every call. Writing the zero owner
// deletes the whole record, so an unowned node never carries a resolver or TTL.
//
// The registry sits behind a proxy.Gateway. Its administrator (set by
// Initialize, which also claims the root node) can swap the implementation
// without touching stored records.
package registry
