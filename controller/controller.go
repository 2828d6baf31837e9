package controller

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/proxy"
)

const (
	TagV1 = "ETHRegistrarController"
	TagV2 = "ETHRegistrarControllerV2"
)

// Config is fixed when the controller is created.
type Config struct {
	// BaseName is the dotted name the base registrar manages, e.g. "web3".
	BaseName string
	// Native is the ledger holding the controller's operational balance.
	Native common.Address
}

// RegisterRequest describes one complete registration.
type RegisterRequest struct {
	Label    string
	Owner    common.Address
	Duration time.Duration
	// Resolver, if set, is written into the registry with the owner.
	Resolver common.Address
	// Records are written to Resolver after registration.
	Records []interfaces.RecordUpdate
	// ReverseRecord points the caller's reverse record at the new name.
	ReverseRecord bool
}

// State is the persistent controller state.
type State struct {
	cfg     Config
	address common.Address

	base        *chain.Value[common.Address]
	reverse     *chain.Value[common.Address]
	nameWrapper *chain.Value[common.Address]
	ens         *chain.Value[common.Address]
}

func NewState(c *chain.Chain, name string, address common.Address, cfg Config) *State {
	return &State{
		cfg:         cfg,
		address:     address,
		base:        chain.NewValue[common.Address](c, name+".base"),
		reverse:     chain.NewValue[common.Address](c, name+".reverseRegistrar"),
		nameWrapper: chain.NewValue[common.Address](c, name+".nameWrapper"),
		ens:         chain.NewValue[common.Address](c, name+".ens"),
	}
}

// API is the surface shared by every controller implementation.
type API interface {
	Base() common.Address
	ReverseRegistrar() common.Address
	NameWrapper() common.Address
	ENS() common.Address

	NameOf(label string) string
	NodeOf(label string) (common.Hash, error)
	Available(label string) bool
	NameExpires(label string) uint64

	Register(caller common.Address, req RegisterRequest) (uint64, error)
	Renew(caller common.Address, label string, duration time.Duration) (uint64, error)
	RecoverFunds(caller common.Address, asset interfaces.AssetLedger, destination common.Address, amount *uint256.Int) error
}

// Withdrawer is exposed by TagV1 only.
type Withdrawer interface {
	Withdraw(caller common.Address) error
}

// MigratorV2 is exposed by TagV2 only.
type MigratorV2 interface {
	InitializeV2(caller, newBase common.Address) error
}

// Controller is the stable handle of an upgradeable registration controller.
type Controller struct {
	*proxy.Gateway[State, API]
}

func Implementations(c *chain.Chain) []proxy.Implementation[State, API] {
	return []proxy.Implementation[State, API]{
		{Tag: TagV1, Bind: func(s *State, b proxy.Binding) API {
			return &controllerV1{core{c: c, s: s, b: b}}
		}},
		{Tag: TagV2, Bind: func(s *State, b proxy.Binding) API {
			return &controllerV2{core{c: c, s: s, b: b}}
		}},
	}
}

// New creates a controller at address and binds it in the chain directory.
func New(c *chain.Chain, address common.Address, cfg Config) *Controller {
	const name = "controller"
	ctrl := &Controller{Gateway: proxy.New(c, address, name, NewState(c, name, address, cfg), Implementations(c)...)}
	c.Bind(address, ctrl)
	return ctrl
}

// Initialize wires the controller to its collaborators. caller becomes the administrator.
func (ctrl *Controller) Initialize(caller, base, reverse, nameWrapper, ens common.Address) error {
	return ctrl.Gateway.Initialize(caller, func() error {
		s := ctrl.State()
		s.base.Set(base)
		s.reverse.Set(reverse)
		s.nameWrapper.Set(nameWrapper)
		s.ens.Set(ens)
		return nil
	})
}

func (ctrl *Controller) Base() common.Address             { return ctrl.Current().Base() }
func (ctrl *Controller) ReverseRegistrar() common.Address { return ctrl.Current().ReverseRegistrar() }
func (ctrl *Controller) NameWrapper() common.Address      { return ctrl.Current().NameWrapper() }
func (ctrl *Controller) ENS() common.Address              { return ctrl.Current().ENS() }
func (ctrl *Controller) NameOf(label string) string       { return ctrl.Current().NameOf(label) }
func (ctrl *Controller) Available(label string) bool      { return ctrl.Current().Available(label) }
func (ctrl *Controller) NameExpires(label string) uint64  { return ctrl.Current().NameExpires(label) }

func (ctrl *Controller) NodeOf(label string) (common.Hash, error) {
	return ctrl.Current().NodeOf(label)
}

func (ctrl *Controller) Register(caller common.Address, req RegisterRequest) (uint64, error) {
	return ctrl.Current().Register(caller, req)
}

func (ctrl *Controller) Renew(caller common.Address, label string, duration time.Duration) (uint64, error) {
	return ctrl.Current().Renew(caller, label, duration)
}

func (ctrl *Controller) RecoverFunds(caller common.Address, asset interfaces.AssetLedger, destination common.Address, amount *uint256.Int) error {
	return ctrl.Current().RecoverFunds(caller, asset, destination, amount)
}

// TransferContractOwnership reassigns the controller administrator.
func (ctrl *Controller) TransferContractOwnership(caller, newAdmin common.Address) error {
	return ctrl.TransferOwnership(caller, newAdmin)
}

// Withdraw sweeps the native balance to the administrator, if the bound
// implementation supports it.
func (ctrl *Controller) Withdraw(caller common.Address) error {
	w, ok := ctrl.Current().(Withdrawer)
	if !ok {
		return fmt.Errorf("%w: withdraw on %s", interfaces.ErrUnsupportedOperation, ctrl.Implementation())
	}
	return w.Withdraw(caller)
}

// InitializeV2 runs the V2 migration, if the bound implementation supports it.
func (ctrl *Controller) InitializeV2(caller, newBase common.Address) error {
	m, ok := ctrl.Current().(MigratorV2)
	if !ok {
		return fmt.Errorf("%w: initializeV2 on %s", interfaces.ErrUnsupportedOperation, ctrl.Implementation())
	}
	return m.InitializeV2(caller, newBase)
}
