package interfaces

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// NamespaceReader provides pure reads over the registry.
// Unset nodes return zero values, never an error.
type NamespaceReader interface {
	Owner(node common.Hash) common.Address
	Resolver(node common.Hash) common.Address
	TTL(node common.Hash) uint64
	RecordExists(node common.Hash) bool
}

// NamespaceRegistry is the authoritative mapping of nodes to records.
type NamespaceRegistry interface {
	NamespaceReader

	// SetOwner transfers ownership of node. Caller must own node.
	SetOwner(caller common.Address, node common.Hash, owner common.Address) error

	// SetSubnodeOwner assigns the owner of keccak(parent, label). Caller must own parent.
	SetSubnodeOwner(caller common.Address, parent, label common.Hash, owner common.Address) (common.Hash, error)

	// SetSubnodeRecord is SetSubnodeOwner plus resolver and ttl in one atomic step.
	SetSubnodeRecord(caller common.Address, parent, label common.Hash, owner, resolver common.Address, ttl uint64) (common.Hash, error)

	// SetRecord sets owner, resolver and ttl of node in one atomic step.
	SetRecord(caller common.Address, node common.Hash, owner, resolver common.Address, ttl uint64) error

	// SetResolver sets the resolver address of node. Caller must own node.
	SetResolver(caller common.Address, node common.Hash, resolver common.Address) error

	// SetTTL sets the cache lifetime of node. Caller must own node.
	SetTTL(caller common.Address, node common.Hash, ttl uint64) error
}

// RegistrationEntry is the registrar's view of one token.
type RegistrationEntry struct {
	Holder  common.Address
	Expires uint64
}

// Registrar grants time-bounded ownership of labels directly under its base node.
type Registrar interface {
	BaseNode() common.Hash
	GracePeriod() time.Duration

	// Register creates or extends a registration. Caller must be a controller.
	Register(caller common.Address, id common.Hash, holder common.Address, duration time.Duration) (uint64, error)

	// RegisterWithResolver is Register with the resolver mirrored in the same registry write.
	RegisterWithResolver(caller common.Address, id common.Hash, holder common.Address, duration time.Duration, resolver common.Address) (uint64, error)

	// Renew extends a registration that is not yet reclaimable. Caller must be a controller.
	Renew(caller common.Address, id common.Hash, duration time.Duration) (uint64, error)

	// Reclaim reassigns a reclaimable registration to newHolder.
	Reclaim(caller common.Address, id common.Hash, newHolder common.Address, duration time.Duration) (uint64, error)

	// Transfer hands a live registration to another holder. Caller must be the holder.
	Transfer(caller common.Address, id common.Hash, to common.Address) error

	Entry(id common.Hash) (RegistrationEntry, bool)
	NameExpires(id common.Hash) uint64
	Available(id common.Hash) bool
	IsLive(id common.Hash) bool
	IsInGrace(id common.Hash) bool
}

// RecordKind selects the record an update writes.
type RecordKind uint8

const (
	AddrRecord RecordKind = iota
	TextRecord
	ContenthashRecord
	NameRecord
)

// String returns the record kind name.
func (k RecordKind) String() string {
	switch k {
	case AddrRecord:
		return "addr"
	case TextRecord:
		return "text"
	case ContenthashRecord:
		return "contenthash"
	case NameRecord:
		return "name"
	default:
		return "unknown"
	}
}

// RecordUpdate is one write in a resolver batch.
type RecordUpdate struct {
	Kind  RecordKind
	Key   string         // text records only
	Value string         // text and name records
	Addr  common.Address // address records
	Data  []byte         // contenthash records
}

// RecordResolver stores resolution data for nodes.
type RecordResolver interface {
	SetAddr(caller common.Address, node common.Hash, addr common.Address) error
	Addr(node common.Hash) common.Address

	SetText(caller common.Address, node common.Hash, key, value string) error
	Text(node common.Hash, key string) string

	SetContenthash(caller common.Address, node common.Hash, hash []byte) error
	Contenthash(node common.Hash) []byte

	SetName(caller common.Address, node common.Hash, name string) error
	Name(node common.Hash) string

	// Multicall applies updates to node atomically.
	Multicall(caller common.Address, node common.Hash, updates []RecordUpdate) error

	// ClearRecords drops every record of node.
	ClearRecords(caller common.Address, node common.Hash) error
}

// ReverseRegistrar maps principals back to canonical names.
type ReverseRegistrar interface {
	// SetName claims the reverse node of principal and stores name on the default resolver.
	SetName(caller, principal common.Address, name string) (common.Hash, error)

	// SetNameForAddr is SetName with an explicit owner and resolver.
	SetNameForAddr(caller, principal, owner, resolver common.Address, name string) (common.Hash, error)

	Node(principal common.Address) common.Hash
	NameOf(principal common.Address) string
}

// AssetLedger is the fungible asset collaborator. The core never implements
// custody itself; it only queries balances and requests transfers.
type AssetLedger interface {
	BalanceOf(holder common.Address) *uint256.Int

	// Transfer moves amount from caller to destination, failing with
	// ErrInsufficientBalance if the caller holds less.
	Transfer(caller, destination common.Address, amount *uint256.Int) error
}
