// Package deploy wires a complete namespace registry onto a chain: registry,
// base registrar, resolver, reverse registrar, native ledger and controller,
// with the ownership and allow-lists each of them expects.
package deploy

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/controller"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/ledger"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/ruteri/namespace-registry/registrar"
	"github.com/ruteri/namespace-registry/registry"
	"github.com/ruteri/namespace-registry/resolver"
	"github.com/ruteri/namespace-registry/reverse"
)

const (
	registrarV1Slots = "registrar.v1"
	registrarV2Slots = "registrar.v2"
)

// Options configures a deployment.
type Options struct {
	// BaseLabel is the top-level label the registrar manages.
	BaseLabel string
	// GracePeriodV1 configures the first registrar generation, GracePeriodV2 its successor.
	GracePeriodV1 time.Duration
	GracePeriodV2 time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	// NameWrapper is an external collaborator address, stored but not called.
	NameWrapper common.Address
}

func DefaultOptions() Options {
	return Options{
		BaseLabel:     "web3",
		GracePeriodV1: registrar.GracePeriodV1,
		GracePeriodV2: registrar.GracePeriodV2,
		MinDuration:   24 * time.Hour,
	}
}

// Deployment holds the handles of a deployed system.
type Deployment struct {
	Chain    *chain.Chain
	Deployer common.Address
	Options  Options

	Registry    *registry.Registry
	RegistrarV1 *registrar.Registrar
	RegistrarV2 *registrar.Registrar
	Resolver    *resolver.Resolver
	Reverse     *reverse.Registrar
	Native      *ledger.Token
	Controller  *controller.Controller
}

// Deploy creates every contract from deployer and wires them together in one
// atomic call.
func Deploy(c *chain.Chain, deployer common.Address, opts Options) (*Deployment, error) {
	if opts.BaseLabel == "" || strings.Contains(opts.BaseLabel, ".") {
		return nil, fmt.Errorf("%w: base label %q", controller.ErrInvalidLabel, opts.BaseLabel)
	}
	d := &Deployment{Chain: c, Deployer: deployer, Options: opts}

	err := c.Submit(func() error {
		regAddr := c.Deploy(deployer)
		baseAddr := c.Deploy(deployer)
		resAddr := c.Deploy(deployer)
		revAddr := c.Deploy(deployer)
		nativeAddr := c.Deploy(deployer)
		ctrlAddr := c.Deploy(deployer)

		d.Registry = registry.New(c, regAddr)
		if err := d.Registry.Initialize(deployer); err != nil {
			return err
		}

		d.RegistrarV1 = registrar.New(c, baseAddr, registrarV1Slots, deployer, registrar.Config{
			Registry:    regAddr,
			BaseNode:    namehash.NameHash(opts.BaseLabel),
			GracePeriod: opts.GracePeriodV1,
			MinDuration: opts.MinDuration,
			MaxDuration: opts.MaxDuration,
		})
		if _, err := d.Registry.SetSubnodeOwner(deployer, namehash.Root, namehash.LabelHash(opts.BaseLabel), baseAddr); err != nil {
			return err
		}

		d.Resolver = resolver.New(c, resAddr)
		if err := d.Resolver.Initialize(deployer, regAddr, opts.NameWrapper, ctrlAddr, revAddr); err != nil {
			return err
		}

		d.Reverse = reverse.New(c, revAddr, deployer, regAddr, resAddr)
		reverseNode, err := d.Registry.SetSubnodeOwner(deployer, namehash.Root, namehash.LabelHash("reverse"), deployer)
		if err != nil {
			return err
		}
		if _, err := d.Registry.SetSubnodeOwner(deployer, reverseNode, namehash.LabelHash("addr"), revAddr); err != nil {
			return err
		}
		if err := d.Reverse.SetController(deployer, ctrlAddr, true); err != nil {
			return err
		}

		d.Native = ledger.New(c, nativeAddr, deployer, "NATIVE")

		d.Controller = controller.New(c, ctrlAddr, controller.Config{BaseName: opts.BaseLabel, Native: nativeAddr})
		if err := d.Controller.Initialize(deployer, baseAddr, revAddr, opts.NameWrapper, regAddr); err != nil {
			return err
		}
		return d.RegistrarV1.AddController(deployer, ctrlAddr)
	})
	if err != nil {
		return nil, fmt.Errorf("deploying registry: %w", err)
	}

	c.Log().Info("registry deployed",
		slog.String("deployer", deployer.Hex()),
		slog.String("base", opts.BaseLabel),
		slog.String("registry", d.Registry.Address().Hex()),
		slog.String("controller", d.Controller.Address().Hex()))
	return d, nil
}

// BaseRegistrar is the registrar the controller currently registers through.
func (d *Deployment) BaseRegistrar() *registrar.Registrar {
	if r, err := chain.Resolve[*registrar.Registrar](d.Chain, d.Controller.Base()); err == nil {
		return r
	}
	return d.RegistrarV1
}

// UpgradeControllerToV2 migrates to the second generation: a registrar with
// GracePeriodV2 that inherits every V1 registration takes over the base node,
// and the controller is upgraded and pointed at it. caller must be the root
// owner and the controller administrator.
func (d *Deployment) UpgradeControllerToV2(caller common.Address) error {
	c := d.Chain
	var next *registrar.Registrar
	err := c.Submit(func() error {
		if d.RegistrarV2 != nil {
			return fmt.Errorf("%w: registrar generation 2 already deployed", interfaces.ErrAlreadyInitialized)
		}
		base := namehash.LabelHash(d.Options.BaseLabel)
		ctrlAddr := d.Controller.Address()

		next = registrar.New(c, c.Deploy(caller), registrarV2Slots, caller, registrar.Config{
			Registry:    d.Registry.Address(),
			BaseNode:    namehash.NameHash(d.Options.BaseLabel),
			GracePeriod: d.Options.GracePeriodV2,
			MinDuration: d.Options.MinDuration,
			MaxDuration: d.Options.MaxDuration,
			Predecessor: d.RegistrarV1.Address(),
		})
		if _, err := d.Registry.SetSubnodeOwner(caller, namehash.Root, base, next.Address()); err != nil {
			return err
		}
		if err := next.AddController(caller, ctrlAddr); err != nil {
			return err
		}
		if err := d.Controller.Upgrade(caller, controller.TagV2); err != nil {
			return err
		}
		if err := d.Controller.InitializeV2(caller, next.Address()); err != nil {
			return err
		}
		d.RegistrarV2 = next
		return nil
	})
	if err != nil {
		return fmt.Errorf("upgrading controller: %w", err)
	}
	c.Log().Info("controller upgraded",
		slog.String("implementation", controller.TagV2),
		slog.String("registrar", next.Address().Hex()))
	return nil
}

// Addresses names every contract of the deployment.
func (d *Deployment) Addresses() map[string]common.Address {
	out := map[string]common.Address{
		"registry":         d.Registry.Address(),
		"registrar":        d.BaseRegistrar().Address(),
		"registrarV1":      d.RegistrarV1.Address(),
		"resolver":         d.Resolver.Address(),
		"reverseRegistrar": d.Reverse.Address(),
		"native":           d.Native.Address(),
		"controller":       d.Controller.Address(),
	}
	if d.RegistrarV2 != nil {
		out["registrarV2"] = d.RegistrarV2.Address()
	}
	return out
}

var ErrIncompatibleSnapshot = errors.New("snapshot does not match deployment")

// Restore installs slots taken from a deployment with the same deployer and
// options. If the snapshot was taken after the V2 migration the migration is
// replayed first so every slot has a home. The whole snapshot is decoded
// before that, so a rejected snapshot leaves the deployment untouched.
func (d *Deployment) Restore(slots []chain.Slot) error {
	needsV2 := false
	for _, s := range slots {
		if strings.HasPrefix(s.Name, registrarV2Slots+".") {
			needsV2 = true
			break
		}
	}
	if needsV2 && d.RegistrarV2 == nil {
		// Both generations share one slot layout.
		like := func(name string) string {
			if rest, ok := strings.CutPrefix(name, registrarV2Slots+"."); ok {
				return registrarV1Slots + "." + rest
			}
			return ""
		}
		if err := d.Chain.CheckRestore(slots, like); err != nil {
			return fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
		}
		if err := d.UpgradeControllerToV2(d.Deployer); err != nil {
			return fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
		}
	}
	if err := d.Chain.Restore(slots); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
	}
	return nil
}
