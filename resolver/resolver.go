package resolver

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/proxy"
)

// ImplementationTag names the resolver implementation in the gateway catalogue.
const ImplementationTag = "PublicResolver"

type recordKey struct {
	Node    common.Hash
	Version uint64
}

type textKey struct {
	Node    common.Hash
	Version uint64
	Key     string
}

// State is the persistent resolver state.
type State struct {
	ens               *chain.Value[common.Address]
	nameWrapper       *chain.Value[common.Address]
	trustedController *chain.Value[common.Address]
	trustedReverse    *chain.Value[common.Address]

	versions      *chain.Map[common.Hash, uint64]
	addrs         *chain.Map[recordKey, common.Address]
	texts         *chain.Map[textKey, string]
	contenthashes *chain.Map[recordKey, []byte]
	names         *chain.Map[recordKey, string]
}

func NewState(c *chain.Chain, name string) *State {
	return &State{
		ens:               chain.NewValue[common.Address](c, name+".ens"),
		nameWrapper:       chain.NewValue[common.Address](c, name+".nameWrapper"),
		trustedController: chain.NewValue[common.Address](c, name+".trustedController"),
		trustedReverse:    chain.NewValue[common.Address](c, name+".trustedReverseRegistrar"),
		versions:          chain.NewMap[common.Hash, uint64](c, name+".versions"),
		addrs:             chain.NewMap[recordKey, common.Address](c, name+".addrs"),
		texts:             chain.NewMap[textKey, string](c, name+".texts"),
		contenthashes:     chain.NewMap[recordKey, []byte](c, name+".contenthashes"),
		names:             chain.NewMap[recordKey, string](c, name+".names"),
	}
}

// API is the surface every resolver implementation exposes.
type API interface {
	interfaces.RecordResolver

	ENS() common.Address
	NameWrapper() common.Address
	TrustedController() common.Address
	TrustedReverseRegistrar() common.Address
	RecordVersion(node common.Hash) uint64
}

// Resolver is the stable handle of an upgradeable resolver.
type Resolver struct {
	*proxy.Gateway[State, API]
}

var _ interfaces.RecordResolver = (*Resolver)(nil)

func Implementations(c *chain.Chain) []proxy.Implementation[State, API] {
	return []proxy.Implementation[State, API]{{
		Tag: ImplementationTag,
		Bind: func(s *State, _ proxy.Binding) API {
			return &publicResolver{c: c, s: s}
		},
	}}
}

// New creates a resolver at address and binds it in the chain directory.
func New(c *chain.Chain, address common.Address) *Resolver {
	const name = "resolver"
	r := &Resolver{Gateway: proxy.New(c, address, name, NewState(c, name), Implementations(c)...)}
	c.Bind(address, r)
	return r
}

// Initialize wires the resolver to the registry and its trusted writers.
// caller becomes the administrator.
func (r *Resolver) Initialize(caller, ens, nameWrapper, trustedController, trustedReverse common.Address) error {
	return r.Gateway.Initialize(caller, func() error {
		s := r.State()
		s.ens.Set(ens)
		s.nameWrapper.Set(nameWrapper)
		s.trustedController.Set(trustedController)
		s.trustedReverse.Set(trustedReverse)
		return nil
	})
}

// Owner is the contract administrator.
func (r *Resolver) Owner() common.Address { return r.Admin() }

func (r *Resolver) ENS() common.Address                     { return r.Current().ENS() }
func (r *Resolver) NameWrapper() common.Address             { return r.Current().NameWrapper() }
func (r *Resolver) TrustedController() common.Address       { return r.Current().TrustedController() }
func (r *Resolver) TrustedReverseRegistrar() common.Address { return r.Current().TrustedReverseRegistrar() }
func (r *Resolver) RecordVersion(node common.Hash) uint64   { return r.Current().RecordVersion(node) }

func (r *Resolver) SetAddr(caller common.Address, node common.Hash, addr common.Address) error {
	return r.Current().SetAddr(caller, node, addr)
}

func (r *Resolver) Addr(node common.Hash) common.Address {
	return r.Current().Addr(node)
}

func (r *Resolver) SetText(caller common.Address, node common.Hash, key, value string) error {
	return r.Current().SetText(caller, node, key, value)
}

func (r *Resolver) Text(node common.Hash, key string) string {
	return r.Current().Text(node, key)
}

func (r *Resolver) SetContenthash(caller common.Address, node common.Hash, hash []byte) error {
	return r.Current().SetContenthash(caller, node, hash)
}

func (r *Resolver) Contenthash(node common.Hash) []byte {
	return r.Current().Contenthash(node)
}

func (r *Resolver) SetName(caller common.Address, node common.Hash, name string) error {
	return r.Current().SetName(caller, node, name)
}

func (r *Resolver) Name(node common.Hash) string {
	return r.Current().Name(node)
}

func (r *Resolver) Multicall(caller common.Address, node common.Hash, updates []interfaces.RecordUpdate) error {
	return r.Current().Multicall(caller, node, updates)
}

func (r *Resolver) ClearRecords(caller common.Address, node common.Hash) error {
	return r.Current().ClearRecords(caller, node)
}
