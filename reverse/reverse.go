// Package reverse maintains the addr.reverse subtree, mapping principals back
// to their canonical names.
package reverse

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/ruteri/namespace-registry/proxy"
)

// BaseNode is namehash("addr.reverse"). The registrar must own it.
var BaseNode = namehash.NameHash(namehash.ReverseBase)

// Registrar writes reverse records for principals, or on their behalf when
// called by an authorized controller.
type Registrar struct {
	*proxy.Ownable

	c        *chain.Chain
	address  common.Address
	registry common.Address

	defaultResolver *chain.Value[common.Address]
	controllers     *chain.Map[common.Address, bool]
}

var _ interfaces.ReverseRegistrar = (*Registrar)(nil)

// New creates a reverse registrar at address and binds it in the chain directory.
func New(c *chain.Chain, address, owner, registry, defaultResolver common.Address) *Registrar {
	const name = "reverse"
	r := &Registrar{
		Ownable:         proxy.NewOwnable(c, name, owner),
		c:               c,
		address:         address,
		registry:        registry,
		defaultResolver: chain.NewValue[common.Address](c, name+".defaultResolver"),
		controllers:     chain.NewMap[common.Address, bool](c, name+".controllers"),
	}
	r.defaultResolver.Set(defaultResolver)
	c.Bind(address, r)
	return r
}

func (r *Registrar) Address() common.Address         { return r.address }
func (r *Registrar) DefaultResolver() common.Address { return r.defaultResolver.Get() }

// Node returns the reverse node of principal.
func (r *Registrar) Node(principal common.Address) common.Hash {
	return namehash.ReverseNode(principal)
}

func (r *Registrar) IsController(addr common.Address) bool {
	ok, _ := r.controllers.Get(addr)
	return ok
}

// SetController grants or revokes the right to write on behalf of any principal.
func (r *Registrar) SetController(caller, controller common.Address, enabled bool) error {
	return r.c.Atomic(func() error {
		if err := r.RequireOwner(caller); err != nil {
			return err
		}
		if enabled {
			r.controllers.Set(controller, true)
		} else {
			r.controllers.Delete(controller)
		}
		r.c.Log().Info("reverse controller changed",
			slog.String("controller", controller.Hex()),
			slog.Bool("enabled", enabled))
		return nil
	})
}

func (r *Registrar) SetDefaultResolver(caller, resolver common.Address) error {
	return r.c.Atomic(func() error {
		if err := r.RequireOwner(caller); err != nil {
			return err
		}
		if resolver == (common.Address{}) {
			return fmt.Errorf("%w: default resolver", interfaces.ErrZeroAddress)
		}
		r.defaultResolver.Set(resolver)
		return nil
	})
}

func (r *Registrar) authorize(caller, principal common.Address) error {
	if caller == principal || r.IsController(caller) {
		return nil
	}
	return fmt.Errorf("%w: %s may not write the reverse record of %s", interfaces.ErrUnauthorized, caller.Hex(), principal.Hex())
}

// Claim takes the reverse node of principal for owner, pointed at resolver.
func (r *Registrar) Claim(caller, principal, owner, resolver common.Address) (common.Hash, error) {
	var node common.Hash
	err := r.c.Atomic(func() error {
		if err := r.authorize(caller, principal); err != nil {
			return err
		}
		var err error
		node, err = r.claim(principal, owner, resolver)
		return err
	})
	return node, err
}

func (r *Registrar) claim(principal, owner, resolver common.Address) (common.Hash, error) {
	reg, err := chain.Resolve[interfaces.NamespaceRegistry](r.c, r.registry)
	if err != nil {
		return common.Hash{}, err
	}
	label := namehash.LabelHash(namehash.ReverseLabel(principal))
	return reg.SetSubnodeRecord(r.address, BaseNode, label, owner, resolver, 0)
}

// SetName claims the reverse node for principal on the default resolver and
// stores name there.
func (r *Registrar) SetName(caller, principal common.Address, name string) (common.Hash, error) {
	return r.SetNameForAddr(caller, principal, principal, r.defaultResolver.Get(), name)
}

func (r *Registrar) SetNameForAddr(caller, principal, owner, resolver common.Address, name string) (common.Hash, error) {
	var node common.Hash
	err := r.c.Atomic(func() error {
		if err := r.authorize(caller, principal); err != nil {
			return err
		}
		if resolver == (common.Address{}) {
			return fmt.Errorf("%w: no resolver for reverse record of %s", interfaces.ErrNotFound, principal.Hex())
		}
		var err error
		if node, err = r.claim(principal, owner, resolver); err != nil {
			return err
		}
		res, err := chain.Resolve[interfaces.RecordResolver](r.c, resolver)
		if err != nil {
			return err
		}
		if err := res.SetName(r.address, node, name); err != nil {
			return err
		}
		r.c.Log().Debug("reverse name set",
			slog.String("principal", principal.Hex()),
			slog.String("name", name))
		return nil
	})
	return node, err
}

// NameOf reads the canonical name of principal through its reverse resolver.
func (r *Registrar) NameOf(principal common.Address) string {
	node := namehash.ReverseNode(principal)
	reg, err := chain.Resolve[interfaces.NamespaceReader](r.c, r.registry)
	if err != nil {
		return ""
	}
	res, err := chain.Resolve[interfaces.RecordResolver](r.c, reg.Resolver(node))
	if err != nil {
		return ""
	}
	return res.Name(node)
}
