package httpserver

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruteri/namespace-registry/api"
	"github.com/ruteri/namespace-registry/api/clients"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/controller"
	"github.com/ruteri/namespace-registry/deploy"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/metrics"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/ruteri/namespace-registry/snapshot"
	"github.com/ruteri/namespace-registry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const year = 365 * 24 * 60 * 60

type fixture struct {
	d        *deploy.Deployment
	metrics  *metrics.Metrics
	backend  *storage.FileBackend
	url      string
	deployer *clients.RegistryClient
	alice    *clients.RegistryClient
	bob      *clients.RegistryClient
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func setup(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	deployerKey := newKey(t)

	c := chain.New(chain.NewManualClock(time.Unix(1_700_000_000, 0)), log)
	d, err := deploy.Deploy(c, crypto.PubkeyToAddress(deployerKey.PublicKey), deploy.DefaultOptions())
	require.NoError(t, err)

	backend, err := storage.NewFileBackend(t.TempDir(), log)
	require.NoError(t, err)

	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	srv := New(&HTTPServerConfig{Log: log}, NewHandler(d, backend, m, log), nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &fixture{
		d:        d,
		metrics:  m,
		backend:  backend,
		url:      ts.URL,
		deployer: clients.NewRegistryClient(ts.URL, deployerKey),
		alice:    clients.NewRegistryClient(ts.URL, newKey(t)),
		bob:      clients.NewRegistryClient(ts.URL, newKey(t)),
	}
}

func (f *fixture) view(t *testing.T, fn func()) {
	t.Helper()
	require.NoError(t, f.d.Chain.View(func() error {
		fn()
		return nil
	}))
}

func (f *fixture) registerAlice(t *testing.T) {
	t.Helper()
	_, err := f.alice.Register(context.Background(), api.RegisterRequest{
		Label:           "alice",
		Owner:           f.alice.Address(),
		DurationSeconds: year,
		Resolver:        f.d.Resolver.Address(),
		Records: []api.RecordUpdate{
			{Kind: "addr", Addr: f.alice.Address()},
			{Kind: "text", Key: "url", Value: "https://alice.example"},
		},
		ReverseRecord: true,
	})
	require.NoError(t, err)
}

func TestServer_Contracts(t *testing.T) {
	f := setup(t)
	resp, err := f.alice.Contracts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, f.d.Registry.Address(), resp.Contracts["registry"])
	assert.Equal(t, controller.TagV1, resp.Controller)
	assert.Equal(t, f.deployer.Address(), resp.ControllerAdmin)
	assert.Equal(t, "web3", resp.BaseName)
	assert.Equal(t, uint64(90*24*60*60), resp.GracePeriod)
}

func TestServer_RegisterAndRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.registerAlice(t)

	name, err := f.bob.Name(ctx, "alice.web3", "url")
	require.NoError(t, err)
	assert.True(t, name.Exists)
	assert.Equal(t, f.alice.Address(), name.Owner)
	assert.Equal(t, f.alice.Address(), name.Addr)
	assert.Equal(t, "https://alice.example", name.Texts["url"])

	label, err := f.bob.Label(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, label.Available)
	assert.Equal(t, f.alice.Address(), label.Holder)
	assert.Equal(t, namehash.NameHash("alice.web3"), label.Node)

	rev, err := f.bob.Reverse(ctx, f.alice.Address())
	require.NoError(t, err)
	assert.Equal(t, "alice.web3", rev.Name)

	node, err := f.bob.Node(ctx, namehash.NameHash("alice.web3"))
	require.NoError(t, err)
	assert.Equal(t, f.d.Resolver.Address(), node.Resolver)

	_, err = f.bob.Register(ctx, api.RegisterRequest{Label: "alice", Owner: f.bob.Address(), DurationSeconds: year})
	assert.ErrorIs(t, err, interfaces.ErrAlreadyActiveOrInGrace)

	_, err = f.bob.Name(ctx, "nobody.web3")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Registrations))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Calls.WithLabelValues("controller.register", "unavailable")))
}

func TestServer_OwnerWrites(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.registerAlice(t)
	node := namehash.NameHash("alice.web3")

	err := f.bob.SetTTL(ctx, api.SetTTLRequest{Node: node, TTL: 60})
	var apiErr *clients.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	require.NoError(t, f.alice.SetTTL(ctx, api.SetTTLRequest{Node: node, TTL: 60}))
	sub, err := f.alice.SetSubnode(ctx, api.SetSubnodeRequest{Parent: node, Label: "www", Owner: f.bob.Address()})
	require.NoError(t, err)
	assert.Equal(t, namehash.NameHash("www.alice.web3"), sub)
	f.view(t, func() { assert.Equal(t, f.bob.Address(), f.d.Registry.Owner(sub)) })

	require.NoError(t, f.alice.SetRecords(ctx, api.RecordsRequest{
		Node:    node,
		Records: []api.RecordUpdate{{Kind: "contenthash", Data: []byte{0xe3, 0x01}}},
	}))
	f.view(t, func() { assert.Equal(t, []byte{0xe3, 0x01}, f.d.Resolver.Contenthash(node)) })

	err = f.alice.SetRecords(ctx, api.RecordsRequest{Node: node, Records: []api.RecordUpdate{{Kind: "bogus"}}})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	require.NoError(t, f.alice.ClearRecords(ctx, node))
	f.view(t, func() { assert.Equal(t, common.Address{}, f.d.Resolver.Addr(node)) })
}

func TestServer_RejectsUnsignedWrites(t *testing.T) {
	f := setup(t)

	resp, err := http.Post(f.url+"/api/v1/registry/ttl", "application/json", bytes.NewReader([]byte(`{"ttl":1}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	readOnly := clients.NewRegistryClient(f.url, nil)
	assert.ErrorIs(t, readOnly.SetTTL(context.Background(), api.SetTTLRequest{}), clients.ErrReadOnly)
}

func TestServer_BadPathParameters(t *testing.T) {
	f := setup(t)

	for _, path := range []string{"/api/v1/nodes/0x1234", "/api/v1/reverse/not-an-address"} {
		resp, err := http.Get(f.url + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}

	ctx := context.Background()
	_, err := f.alice.Label(ctx, "a.b")
	var apiErr *clients.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)

	// Malformed labels never reach the registrar.
	_, err = f.bob.Reclaim(ctx, api.ReclaimRequest{Label: "alice.web3", Holder: f.bob.Address(), DurationSeconds: 86400})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	err = f.bob.TransferName(ctx, api.TransferNameRequest{Label: "", To: f.alice.Address()})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestServer_Ledger(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	err := f.alice.Mint(ctx, api.TokenTransferRequest{To: f.alice.Address(), Amount: "10"})
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	require.NoError(t, f.deployer.Mint(ctx, api.TokenTransferRequest{To: f.alice.Address(), Amount: "10"}))
	require.NoError(t, f.alice.TransferTokens(ctx, api.TokenTransferRequest{To: f.bob.Address(), Amount: "4"}))

	bal, err := f.bob.Balance(ctx, f.bob.Address())
	require.NoError(t, err)
	assert.Equal(t, "4", bal.Balance)
	assert.Equal(t, "NATIVE", bal.Symbol)

	err = f.bob.TransferTokens(ctx, api.TokenTransferRequest{To: f.alice.Address(), Amount: "5"})
	var apiErr *clients.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
}

func TestServer_AdminUpgrade(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.registerAlice(t)

	assert.ErrorIs(t, f.alice.UpgradeController(ctx), interfaces.ErrUnauthorized)
	require.NoError(t, f.deployer.UpgradeController(ctx))
	assert.ErrorIs(t, f.deployer.UpgradeController(ctx), interfaces.ErrAlreadyInitialized)

	contracts, err := f.bob.Contracts(ctx)
	require.NoError(t, err)
	assert.Equal(t, controller.TagV2, contracts.Controller)
	assert.Equal(t, uint64(30*24*60*60), contracts.GracePeriod)

	err = f.deployer.Withdraw(ctx)
	var apiErr *clients.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotImplemented, apiErr.StatusCode)
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedOperation)

	label, err := f.bob.Label(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, f.alice.Address(), label.Holder)

	require.NoError(t, f.deployer.TransferOwnership(ctx, f.bob.Address()))
	f.view(t, func() { assert.Equal(t, f.bob.Address(), f.d.Controller.Admin()) })
}

func TestServer_Snapshot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.registerAlice(t)

	_, err := f.alice.Snapshot(ctx)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	res, err := f.deployer.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.backend.LocationURI(), res.Location)

	id, err := interfaces.NewContentIDFromHex(res.ID)
	require.NoError(t, err)
	doc, err := snapshot.Load(ctx, f.backend, id)
	require.NoError(t, err)
	assert.Equal(t, res.Taken, doc.Taken)
	assert.NotEmpty(t, doc.Slots)
}

func TestServer_Readiness(t *testing.T) {
	f := setup(t)
	get := func(path string) int {
		resp, err := http.Get(f.url + path)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("/livez"))
	assert.Equal(t, http.StatusOK, get("/readyz"))
	assert.Equal(t, http.StatusOK, get("/drain"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
	assert.Equal(t, http.StatusOK, get("/undrain"))
	assert.Equal(t, http.StatusOK, get("/readyz"))
}
