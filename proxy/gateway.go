package proxy

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
)

// Binding is what an implementation sees of the gateway it is bound behind.
type Binding interface {
	Address() common.Address
	Admin() common.Address
	RequireAdmin(caller common.Address) error
	Version() uint64

	// Reinitialize runs fn as initializer number version. It fails with
	// ErrAlreadyInitialized if that version (or a later one) already ran,
	// and with ErrUnauthorized if caller is not the administrator.
	Reinitialize(caller common.Address, version uint64, fn func() error) error
}

// Implementation is one entry of a gateway's catalogue.
type Implementation[S any, I any] struct {
	Tag  string
	Bind func(state *S, b Binding) I
}

// Gateway dispatches calls to the implementation selected by its stored tag.
type Gateway[S any, I any] struct {
	c       *chain.Chain
	address common.Address
	name    string

	admin   *Ownable
	tag     *chain.Value[string]
	version *chain.Value[uint64]

	state   *S
	bound   map[string]I
	catalog []string
}

// New creates a gateway at address dispatching to the first implementation.
// The administrator stays unset until Initialize runs.
func New[S any, I any](c *chain.Chain, address common.Address, name string, state *S, impls ...Implementation[S, I]) *Gateway[S, I] {
	if len(impls) == 0 {
		panic("proxy: gateway " + name + " has no implementations")
	}
	g := &Gateway[S, I]{
		c:       c,
		address: address,
		name:    name,
		admin:   NewOwnable(c, name+".admin", common.Address{}),
		tag:     chain.NewValue[string](c, name+".implementation"),
		version: chain.NewValue[uint64](c, name+".initialized"),
		state:   state,
		bound:   make(map[string]I, len(impls)),
	}
	for _, impl := range impls {
		if _, dup := g.bound[impl.Tag]; dup {
			panic("proxy: duplicate implementation tag " + impl.Tag)
		}
		g.bound[impl.Tag] = impl.Bind(state, g)
		g.catalog = append(g.catalog, impl.Tag)
	}
	g.tag.Set(impls[0].Tag)
	return g
}

func (g *Gateway[S, I]) Address() common.Address { return g.address }

func (g *Gateway[S, I]) Admin() common.Address { return g.admin.Owner() }

func (g *Gateway[S, I]) Version() uint64 { return g.version.Get() }

// Implementation returns the tag calls are currently dispatched to.
func (g *Gateway[S, I]) Implementation() string { return g.tag.Get() }

// Implementations lists the catalogue in registration order.
func (g *Gateway[S, I]) Implementations() []string {
	return append([]string(nil), g.catalog...)
}

// State exposes the shared component state.
func (g *Gateway[S, I]) State() *S { return g.state }

// Current returns the implementation selected by the stored tag. The tag is
// read on every call, so a restored snapshot dispatches to whatever it names.
func (g *Gateway[S, I]) Current() I {
	impl, ok := g.bound[g.tag.Get()]
	if !ok {
		panic(fmt.Sprintf("proxy: %s dispatches to unknown implementation %q", g.name, g.tag.Get()))
	}
	return impl
}

func (g *Gateway[S, I]) RequireAdmin(caller common.Address) error {
	return g.admin.RequireOwner(caller)
}

// Initialize runs fn as initializer version 1 and makes caller the
// administrator. Every later call fails with ErrAlreadyInitialized,
// whatever the caller or arguments.
func (g *Gateway[S, I]) Initialize(caller common.Address, fn func() error) error {
	return g.c.Atomic(func() error {
		if g.version.Get() >= 1 {
			return fmt.Errorf("%w: %s", interfaces.ErrAlreadyInitialized, g.name)
		}
		g.version.Set(1)
		g.admin.set(caller)
		if fn != nil {
			if err := fn(); err != nil {
				return err
			}
		}
		g.c.Log().Info("contract initialized",
			slog.String("contract", g.name),
			slog.String("admin", caller.Hex()),
			slog.String("implementation", g.tag.Get()))
		return nil
	})
}

func (g *Gateway[S, I]) Reinitialize(caller common.Address, version uint64, fn func() error) error {
	return g.c.Atomic(func() error {
		if current := g.version.Get(); current >= version {
			return fmt.Errorf("%w: %s at version %d", interfaces.ErrAlreadyInitialized, g.name, current)
		}
		if err := g.RequireAdmin(caller); err != nil {
			return err
		}
		g.version.Set(version)
		if err := fn(); err != nil {
			return err
		}
		g.c.Log().Info("contract reinitialized",
			slog.String("contract", g.name),
			slog.Uint64("version", version))
		return nil
	})
}

// Upgrade points the gateway at another catalogued implementation. State and
// administrator are left untouched.
func (g *Gateway[S, I]) Upgrade(caller common.Address, tag string) error {
	return g.c.Atomic(func() error {
		if err := g.RequireAdmin(caller); err != nil {
			return err
		}
		if _, ok := g.bound[tag]; !ok {
			return fmt.Errorf("%w: implementation %q for %s", interfaces.ErrNotFound, tag, g.name)
		}
		from := g.tag.Get()
		g.tag.Set(tag)
		g.c.Log().Info("implementation upgraded",
			slog.String("contract", g.name),
			slog.String("from", from),
			slog.String("to", tag))
		return nil
	})
}

// TransferOwnership reassigns the administrator.
func (g *Gateway[S, I]) TransferOwnership(caller, newAdmin common.Address) error {
	return g.admin.TransferOwnership(caller, newAdmin)
}
