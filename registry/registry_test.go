package registry

import (
	"crypto/ecdsa"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = crypto.PubkeyToAddress(mustKey().PublicKey)
	alice    = common.HexToAddress("0xa11ce")
	bob      = common.HexToAddress("0xb0b")
	resolver = common.HexToAddress("0x7e5")
)

func mustKey() *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return key
}

func setupRegistry(t *testing.T) (*chain.Chain, *Registry) {
	t.Helper()
	c := chain.New(chain.NewManualClock(time.Unix(1_700_000_000, 0)), slog.New(slog.NewTextHandler(io.Discard, nil)))
	reg := New(c, c.Deploy(deployer))
	require.NoError(t, reg.Initialize(deployer))
	return c, reg
}

func TestRegistry_Initialize(t *testing.T) {
	c, reg := setupRegistry(t)

	assert.Equal(t, deployer, reg.Admin())
	assert.Equal(t, deployer, reg.Owner(namehash.Root))
	assert.Equal(t, ImplementationTag, reg.Implementation())

	err := reg.Initialize(bob)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyInitialized)
	assert.Equal(t, deployer, reg.Owner(namehash.Root))

	resolved, err := chain.Resolve[interfaces.NamespaceRegistry](c, reg.Address())
	require.NoError(t, err)
	assert.Equal(t, deployer, resolved.Owner(namehash.Root))
}

func TestRegistry_SubnodeOwnership(t *testing.T) {
	_, reg := setupRegistry(t)
	web3 := namehash.NameHash("web3")

	node, err := reg.SetSubnodeOwner(deployer, namehash.Root, namehash.LabelHash("web3"), alice)
	require.NoError(t, err)
	assert.Equal(t, web3, node)
	assert.Equal(t, alice, reg.Owner(web3))
	assert.True(t, reg.RecordExists(web3))

	// The root owner cannot reach past the direct child.
	_, err = reg.SetSubnodeOwner(deployer, web3, namehash.LabelHash("alice"), bob)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	err = reg.SetOwner(deployer, web3, bob)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	child, err := reg.SetSubnodeOwner(alice, web3, namehash.LabelHash("alice"), bob)
	require.NoError(t, err)
	assert.Equal(t, namehash.NameHash("alice.web3"), child)
	assert.Equal(t, bob, reg.Owner(child))
}

func TestRegistry_SetSubnodeOwnerIdempotent(t *testing.T) {
	_, reg := setupRegistry(t)
	label := namehash.LabelHash("web3")

	first, err := reg.SetSubnodeOwner(deployer, namehash.Root, label, alice)
	require.NoError(t, err)
	before := reg.Record(first)

	second, err := reg.SetSubnodeOwner(deployer, namehash.Root, label, alice)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, before, reg.Record(second))

	// Each call is authorized on its own.
	_, err = reg.SetSubnodeOwner(bob, namehash.Root, label, alice)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
}

func TestRegistry_ResolverAndTTL(t *testing.T) {
	_, reg := setupRegistry(t)
	node, err := reg.SetSubnodeRecord(deployer, namehash.Root, namehash.LabelHash("web3"), alice, resolver, 300)
	require.NoError(t, err)
	assert.Equal(t, resolver, reg.Resolver(node))
	assert.Equal(t, uint64(300), reg.TTL(node))

	assert.ErrorIs(t, reg.SetResolver(bob, node, bob), interfaces.ErrUnauthorized)
	assert.ErrorIs(t, reg.SetTTL(bob, node, 1), interfaces.ErrUnauthorized)

	require.NoError(t, reg.SetTTL(alice, node, 60))
	require.NoError(t, reg.SetResolver(alice, node, bob))
	assert.Equal(t, Record{Owner: alice, Resolver: bob, TTL: 60}, reg.Record(node))

	// Ownership change leaves resolver and TTL alone.
	require.NoError(t, reg.SetOwner(alice, node, bob))
	assert.Equal(t, Record{Owner: bob, Resolver: bob, TTL: 60}, reg.Record(node))
}

func TestRegistry_ZeroOwnerClearsRecord(t *testing.T) {
	_, reg := setupRegistry(t)
	label := namehash.LabelHash("web3")
	node, err := reg.SetSubnodeRecord(deployer, namehash.Root, label, alice, resolver, 300)
	require.NoError(t, err)

	require.NoError(t, reg.SetOwner(alice, node, common.Address{}))
	assert.False(t, reg.RecordExists(node))
	assert.Equal(t, common.Address{}, reg.Resolver(node))
	assert.Zero(t, reg.TTL(node))

	// Zero owner through the parent path also clears.
	node, err = reg.SetSubnodeRecord(deployer, namehash.Root, label, alice, resolver, 300)
	require.NoError(t, err)
	_, err = reg.SetSubnodeOwner(deployer, namehash.Root, label, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, Record{}, reg.Record(node))

	_, err = reg.SetSubnodeRecord(deployer, namehash.Root, label, common.Address{}, resolver, 300)
	require.NoError(t, err)
	assert.Equal(t, Record{}, reg.Record(node))

	// An unowned node cannot be written by anyone, including the zero principal.
	assert.ErrorIs(t, reg.SetResolver(common.Address{}, node, resolver), interfaces.ErrUnauthorized)
}

func TestRegistry_UpgradeAuthorization(t *testing.T) {
	_, reg := setupRegistry(t)
	node, err := reg.SetSubnodeOwner(deployer, namehash.Root, namehash.LabelHash("web3"), alice)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Upgrade(bob, ImplementationTag), interfaces.ErrUnauthorized)
	assert.ErrorIs(t, reg.TransferOwnership(bob, bob), interfaces.ErrUnauthorized)

	require.NoError(t, reg.Upgrade(deployer, ImplementationTag))
	assert.Equal(t, deployer, reg.Admin())
	assert.Equal(t, alice, reg.Owner(node))

	require.NoError(t, reg.TransferOwnership(deployer, bob))
	assert.Equal(t, bob, reg.Admin())
	// Contract administration and node ownership are separate axes.
	assert.Equal(t, deployer, reg.Owner(namehash.Root))
}
