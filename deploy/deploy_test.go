package deploy

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/controller"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/ruteri/namespace-registry/registrar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func setup(t *testing.T) (*Deployment, *chain.ManualClock) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	clock := chain.NewManualClock(time.Unix(1_700_000_000, 0))
	c := chain.New(clock, slog.New(slog.NewTextHandler(io.Discard, nil)))

	d, err := Deploy(c, crypto.PubkeyToAddress(key.PublicKey), DefaultOptions())
	require.NoError(t, err)
	return d, clock
}

func TestDeploy_Wiring(t *testing.T) {
	d, _ := setup(t)
	web3 := namehash.NameHash("web3")

	assert.Equal(t, d.Deployer, d.Registry.Admin())
	assert.Equal(t, d.Deployer, d.Registry.Owner(namehash.Root))
	assert.Equal(t, d.RegistrarV1.Address(), d.Registry.Owner(web3))
	assert.Equal(t, d.Reverse.Address(), d.Registry.Owner(namehash.NameHash("addr.reverse")))

	assert.Equal(t, d.RegistrarV1.Address(), d.Controller.Base())
	assert.Equal(t, d.Reverse.Address(), d.Controller.ReverseRegistrar())
	assert.Equal(t, d.Registry.Address(), d.Controller.ENS())
	assert.Equal(t, common.Address{}, d.Controller.NameWrapper())
	assert.Equal(t, d.Deployer, d.Controller.Admin())
	assert.Equal(t, controller.TagV1, d.Controller.Implementation())

	assert.Equal(t, d.Deployer, d.Resolver.Owner())
	assert.Equal(t, d.Controller.Address(), d.Resolver.TrustedController())
	assert.Equal(t, d.Reverse.Address(), d.Resolver.TrustedReverseRegistrar())

	assert.True(t, d.RegistrarV1.IsController(d.Controller.Address()))
	assert.True(t, d.Reverse.IsController(d.Controller.Address()))
	assert.Len(t, d.Addresses(), 7)
}

func TestDeploy_InitializersRunOnce(t *testing.T) {
	d, _ := setup(t)
	zero := common.Address{}

	assert.ErrorIs(t, d.Registry.Initialize(bob), interfaces.ErrAlreadyInitialized)
	assert.ErrorIs(t, d.Resolver.Initialize(bob, zero, zero, zero, zero), interfaces.ErrAlreadyInitialized)
	assert.ErrorIs(t, d.Controller.Initialize(d.Deployer, zero, zero, zero, zero), interfaces.ErrAlreadyInitialized)
	assert.Equal(t, d.RegistrarV1.Address(), d.Controller.Base())
}

func TestDeploy_RejectsBadOptions(t *testing.T) {
	c := chain.New(chain.SystemClock{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	opts := DefaultOptions()
	opts.BaseLabel = "web3.eth"
	_, err := Deploy(c, alice, opts)
	assert.ErrorIs(t, err, controller.ErrInvalidLabel)
	assert.Empty(t, c.Addresses())
}

func TestDeploy_RegistrationLifecycleThroughController(t *testing.T) {
	d, clock := setup(t)
	node := namehash.NameHash("alice.web3")

	expires, err := d.Controller.Register(alice, controller.RegisterRequest{
		Label:    "alice",
		Owner:    alice,
		Duration: day,
		Resolver: d.Resolver.Address(),
		Records: []interfaces.RecordUpdate{
			{Kind: interfaces.AddrRecord, Addr: alice},
			{Kind: interfaces.TextRecord, Key: "url", Value: "https://alice.example"},
		},
		ReverseRecord: true,
	})
	require.NoError(t, err)
	assert.Equal(t, expires, d.Controller.NameExpires("alice"))
	assert.Equal(t, alice, d.Registry.Owner(node))
	assert.Equal(t, d.Resolver.Address(), d.Registry.Resolver(node))
	assert.Equal(t, alice, d.Resolver.Addr(node))
	assert.Equal(t, "https://alice.example", d.Resolver.Text(node, "url"))
	assert.Equal(t, "alice.web3", d.Reverse.NameOf(alice))
	assert.False(t, d.Controller.Available("alice"))

	clock.Advance(day + time.Second)
	id := namehash.LabelHash("alice")
	assert.True(t, d.RegistrarV1.IsInGrace(id))

	_, err = d.RegistrarV1.Reclaim(bob, id, bob, day)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	_, err = d.Controller.Register(bob, controller.RegisterRequest{Label: "alice", Owner: bob, Duration: day})
	assert.ErrorIs(t, err, interfaces.ErrAlreadyActiveOrInGrace)

	reExpires, err := d.Controller.Register(alice, controller.RegisterRequest{Label: "alice", Owner: alice, Duration: day})
	require.NoError(t, err)

	clock.Set(time.Unix(int64(reExpires), 0).Add(registrar.GracePeriodV1))
	_, err = d.RegistrarV1.Reclaim(bob, id, bob, day)
	require.NoError(t, err)
	assert.Equal(t, bob, d.Registry.Owner(node))
	// Stale resolver data survives; the registry record no longer points at it.
	assert.Equal(t, common.Address{}, d.Registry.Resolver(node))
	assert.Equal(t, alice, d.Resolver.Addr(node))
}

func TestDeploy_FailedRegistrationRollsBackEverything(t *testing.T) {
	d, _ := setup(t)
	node := namehash.NameHash("alice.web3")

	// The registrar step succeeds, the resolver batch fails on its last update.
	_, err := d.Controller.Register(alice, controller.RegisterRequest{
		Label:    "alice",
		Owner:    alice,
		Duration: day,
		Resolver: d.Resolver.Address(),
		Records: []interfaces.RecordUpdate{
			{Kind: interfaces.AddrRecord, Addr: alice},
			{Kind: interfaces.RecordKind(42)},
		},
	})
	require.Error(t, err)

	assert.True(t, d.Controller.Available("alice"))
	assert.False(t, d.Registry.RecordExists(node))
	assert.Equal(t, common.Address{}, d.Resolver.Addr(node))
	_, ok := d.RegistrarV1.Entry(namehash.LabelHash("alice"))
	assert.False(t, ok)

	// Reverse record without a resolver fails after registration and records.
	_, err = d.Controller.Register(alice, controller.RegisterRequest{
		Label: "alice", Owner: alice, Duration: day, ReverseRecord: true,
	})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.False(t, d.Registry.RecordExists(node))
}

func TestDeploy_UpgradeControllerToV2(t *testing.T) {
	d, clock := setup(t)
	id := namehash.LabelHash("alice")

	expires, err := d.Controller.Register(alice, controller.RegisterRequest{Label: "alice", Owner: alice, Duration: day})
	require.NoError(t, err)
	require.NoError(t, d.Native.Mint(d.Deployer, d.Controller.Address(), uint256.NewInt(3)))

	assert.ErrorIs(t, d.UpgradeControllerToV2(bob), interfaces.ErrUnauthorized)
	assert.Equal(t, controller.TagV1, d.Controller.Implementation())
	assert.Nil(t, d.RegistrarV2)

	require.NoError(t, d.UpgradeControllerToV2(d.Deployer))
	assert.Equal(t, controller.TagV2, d.Controller.Implementation())
	assert.Equal(t, d.RegistrarV2.Address(), d.Controller.Base())
	assert.Equal(t, d.RegistrarV2, d.BaseRegistrar())
	assert.Equal(t, registrar.GracePeriodV2, d.BaseRegistrar().GracePeriod())
	assert.Equal(t, d.Deployer, d.Controller.Admin())

	// Ownership continuity.
	assert.Equal(t, expires, d.Controller.NameExpires("alice"))
	assert.Equal(t, alice, d.Registry.Owner(namehash.NameHash("alice.web3")))

	// The migration hook runs once.
	err = d.Controller.InitializeV2(d.Deployer, d.RegistrarV1.Address())
	assert.ErrorIs(t, err, interfaces.ErrAlreadyInitialized)
	assert.ErrorIs(t, d.UpgradeControllerToV2(d.Deployer), interfaces.ErrAlreadyInitialized)

	// Withdraw is gone, and that is not an authorization failure.
	err = d.Controller.Withdraw(d.Deployer)
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedOperation)
	assert.NotErrorIs(t, err, interfaces.ErrUnauthorized)
	assert.Equal(t, uint64(3), d.Native.BalanceOf(d.Controller.Address()).Uint64())

	// The new grace period governs inherited registrations.
	clock.Set(time.Unix(int64(expires), 0).Add(registrar.GracePeriodV2))
	assert.True(t, d.Controller.Available("alice"))
	_, err = d.BaseRegistrar().Reclaim(bob, id, bob, day)
	require.NoError(t, err)
	assert.Equal(t, bob, d.Registry.Owner(namehash.NameHash("alice.web3")))
}

func TestDeploy_RestoreReplaysMigration(t *testing.T) {
	d, clock := setup(t)
	_, err := d.Controller.Register(alice, controller.RegisterRequest{Label: "alice", Owner: alice, Duration: day})
	require.NoError(t, err)
	require.NoError(t, d.UpgradeControllerToV2(d.Deployer))
	_, err = d.Controller.Register(bob, controller.RegisterRequest{Label: "bob", Owner: bob, Duration: 2 * day})
	require.NoError(t, err)

	slots, err := d.Chain.Snapshot()
	require.NoError(t, err)

	fresh, err := Deploy(chain.New(clock, slog.New(slog.NewTextHandler(io.Discard, nil))), d.Deployer, d.Options)
	require.NoError(t, err)
	require.NoError(t, fresh.Restore(slots))

	assert.Equal(t, controller.TagV2, fresh.Controller.Implementation())
	assert.Equal(t, d.Addresses(), fresh.Addresses())
	assert.Equal(t, bob, fresh.Registry.Owner(namehash.NameHash("bob.web3")))
	assert.Equal(t, d.Controller.NameExpires("alice"), fresh.Controller.NameExpires("alice"))
	assert.Equal(t, d.Controller.NameExpires("bob"), fresh.Controller.NameExpires("bob"))
}

func TestDeploy_ThirdPartyCannotReregisterForIncumbent(t *testing.T) {
	d, clock := setup(t)
	node := namehash.NameHash("alice.web3")

	expires, err := d.Controller.Register(alice, controller.RegisterRequest{
		Label:    "alice",
		Owner:    alice,
		Duration: day,
		Resolver: d.Resolver.Address(),
		Records: []interfaces.RecordUpdate{
			{Kind: interfaces.AddrRecord, Addr: alice},
			{Kind: interfaces.TextRecord, Key: "url", Value: "https://alice.example"},
		},
	})
	require.NoError(t, err)

	// bob names alice as the owner so the registrar's holder check passes.
	hijack := controller.RegisterRequest{
		Label:    "alice",
		Owner:    alice,
		Duration: 30 * day,
		Resolver: d.Resolver.Address(),
		Records: []interfaces.RecordUpdate{
			{Kind: interfaces.AddrRecord, Addr: bob},
			{Kind: interfaces.TextRecord, Key: "url", Value: "https://bob.example"},
		},
		ReverseRecord: true,
	}

	for _, window := range []string{"live", "grace"} {
		if window == "grace" {
			clock.Advance(day + time.Second)
			require.True(t, d.RegistrarV1.IsInGrace(namehash.LabelHash("alice")))
		}
		_, err = d.Controller.Register(bob, hijack)
		assert.ErrorIs(t, err, interfaces.ErrAlreadyActiveOrInGrace, window)
		assert.Equal(t, expires, d.Controller.NameExpires("alice"), window)
		assert.Equal(t, alice, d.Registry.Owner(node), window)
		assert.Equal(t, alice, d.Resolver.Addr(node), window)
		assert.Equal(t, "https://alice.example", d.Resolver.Text(node, "url"), window)
		assert.Equal(t, "", d.Reverse.NameOf(bob), window)
	}

	// alice herself may still re-register during grace.
	_, err = d.Controller.Register(alice, controller.RegisterRequest{Label: "alice", Owner: alice, Duration: day})
	require.NoError(t, err)
}

func TestDeploy_RejectedRestoreLeavesDeploymentUntouched(t *testing.T) {
	d, clock := setup(t)
	_, err := d.Controller.Register(alice, controller.RegisterRequest{Label: "alice", Owner: alice, Duration: day})
	require.NoError(t, err)
	require.NoError(t, d.UpgradeControllerToV2(d.Deployer))
	slots, err := d.Chain.Snapshot()
	require.NoError(t, err)

	corrupt := make([]chain.Slot, len(slots))
	copy(corrupt, slots)
	for i, s := range corrupt {
		if s.Name == registrarV2Slots+".entries" {
			corrupt[i].Data = []byte{0xff}
		}
	}

	for name, bad := range map[string][]chain.Slot{
		"unknown slot": append(append([]chain.Slot{}, slots...), chain.Slot{Name: "bogus"}),
		"undecodable":  corrupt,
	} {
		fresh, err := Deploy(chain.New(clock, slog.New(slog.NewTextHandler(io.Discard, nil))), d.Deployer, d.Options)
		require.NoError(t, err)

		err = fresh.Restore(bad)
		assert.ErrorIs(t, err, ErrIncompatibleSnapshot, name)
		assert.Nil(t, fresh.RegistrarV2, name)
		assert.Equal(t, controller.TagV1, fresh.Controller.Implementation(), name)
		assert.True(t, fresh.Controller.Available("alice"), name)

		// The same deployment still accepts the good snapshot afterwards.
		require.NoError(t, fresh.Restore(slots), name)
		assert.Equal(t, controller.TagV2, fresh.Controller.Implementation(), name)
	}
}
