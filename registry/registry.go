package registry

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/ruteri/namespace-registry/proxy"
)

// ImplementationTag names the registry implementation in the gateway catalogue.
const ImplementationTag = "ENSRegistry"

// Record is one entry of the registry.
type Record struct {
	Owner    common.Address
	Resolver common.Address
	TTL      uint64
}

// State is the persistent registry state shared by every implementation.
type State struct {
	records *chain.Map[common.Hash, Record]
}

func NewState(c *chain.Chain, name string) *State {
	return &State{records: chain.NewMap[common.Hash, Record](c, name+".records")}
}

// Registry is the stable handle of an upgradeable registry.
type Registry struct {
	*proxy.Gateway[State, interfaces.NamespaceRegistry]
}

var _ interfaces.NamespaceRegistry = (*Registry)(nil)

// Implementations returns the registry catalogue bound to c.
func Implementations(c *chain.Chain) []proxy.Implementation[State, interfaces.NamespaceRegistry] {
	return []proxy.Implementation[State, interfaces.NamespaceRegistry]{{
		Tag: ImplementationTag,
		Bind: func(s *State, _ proxy.Binding) interfaces.NamespaceRegistry {
			return &ensRegistry{c: c, s: s}
		},
	}}
}

// New creates a registry at address and binds it in the chain directory.
func New(c *chain.Chain, address common.Address) *Registry {
	const name = "registry"
	r := &Registry{Gateway: proxy.New(c, address, name, NewState(c, name), Implementations(c)...)}
	c.Bind(address, r)
	return r
}

// Initialize makes caller the administrator and the owner of the root node.
func (r *Registry) Initialize(caller common.Address) error {
	return r.Gateway.Initialize(caller, func() error {
		r.State().records.Set(namehash.Root, Record{Owner: caller})
		return nil
	})
}

// Record returns the full record of node.
func (r *Registry) Record(node common.Hash) Record {
	rec, _ := r.State().records.Get(node)
	return rec
}

func (r *Registry) Owner(node common.Hash) common.Address {
	return r.Current().Owner(node)
}

func (r *Registry) Resolver(node common.Hash) common.Address {
	return r.Current().Resolver(node)
}

func (r *Registry) TTL(node common.Hash) uint64 {
	return r.Current().TTL(node)
}

func (r *Registry) RecordExists(node common.Hash) bool {
	return r.Current().RecordExists(node)
}

func (r *Registry) SetOwner(caller common.Address, node common.Hash, owner common.Address) error {
	return r.Current().SetOwner(caller, node, owner)
}

func (r *Registry) SetSubnodeOwner(caller common.Address, parent, label common.Hash, owner common.Address) (common.Hash, error) {
	return r.Current().SetSubnodeOwner(caller, parent, label, owner)
}

func (r *Registry) SetSubnodeRecord(caller common.Address, parent, label common.Hash, owner, resolver common.Address, ttl uint64) (common.Hash, error) {
	return r.Current().SetSubnodeRecord(caller, parent, label, owner, resolver, ttl)
}

func (r *Registry) SetRecord(caller common.Address, node common.Hash, owner, resolver common.Address, ttl uint64) error {
	return r.Current().SetRecord(caller, node, owner, resolver, ttl)
}

func (r *Registry) SetResolver(caller common.Address, node common.Hash, resolver common.Address) error {
	return r.Current().SetResolver(caller, node, resolver)
}

func (r *Registry) SetTTL(caller common.Address, node common.Hash, ttl uint64) error {
	return r.Current().SetTTL(caller, node, ttl)
}
