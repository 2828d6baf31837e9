package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/flashbots/go-utils/signature"
	"github.com/ruteri/namespace-registry/api"
)

// ErrReadOnly is returned by writes on a client without a signing key.
var ErrReadOnly = errors.New("client has no signing key")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry API returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap exposes the registry error named by Code.
func (e *APIError) Unwrap() error {
	return api.ErrorForCode(e.Code)
}

// RegistryClient talks to a registry server.
type RegistryClient struct {
	baseURL    string
	address    common.Address
	sign       func(body []byte) (string, error)
	httpClient *http.Client
}

// NewRegistryClient creates a client. A nil key yields a read-only client.
func NewRegistryClient(baseURL string, key *ecdsa.PrivateKey, timeout ...time.Duration) *RegistryClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	c := &RegistryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: clientTimeout},
	}
	if key != nil {
		signer := signature.NewSigner(key)
		c.sign = signer.Create
		c.address = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c
}

// Address is the principal the server sees for this client's writes.
func (c *RegistryClient) Address() common.Address {
	return c.address
}

func (c *RegistryClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *RegistryClient) post(ctx context.Context, path string, in, out any) error {
	if c.sign == nil {
		return ErrReadOnly
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	sig, err := c.sign(body)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.SignatureHeader, sig)
	return c.do(req, out)
}

func (c *RegistryClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		var parsed api.ErrorResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *RegistryClient) Node(ctx context.Context, node common.Hash) (*api.NodeResponse, error) {
	var resp api.NodeResponse
	return &resp, c.get(ctx, "/api/v1/nodes/"+node.Hex(), nil, &resp)
}

// Name looks up a dotted name and the given text keys.
func (c *RegistryClient) Name(ctx context.Context, name string, textKeys ...string) (*api.NameResponse, error) {
	query := url.Values{}
	for _, key := range textKeys {
		query.Add("text", key)
	}
	var resp api.NameResponse
	return &resp, c.get(ctx, "/api/v1/names/"+url.PathEscape(name), query, &resp)
}

func (c *RegistryClient) Label(ctx context.Context, label string) (*api.LabelResponse, error) {
	var resp api.LabelResponse
	return &resp, c.get(ctx, "/api/v1/registrar/"+url.PathEscape(label), nil, &resp)
}

func (c *RegistryClient) Reverse(ctx context.Context, addr common.Address) (*api.ReverseResponse, error) {
	var resp api.ReverseResponse
	return &resp, c.get(ctx, "/api/v1/reverse/"+addr.Hex(), nil, &resp)
}

func (c *RegistryClient) Balance(ctx context.Context, addr common.Address) (*api.BalanceResponse, error) {
	var resp api.BalanceResponse
	return &resp, c.get(ctx, "/api/v1/balances/"+addr.Hex(), nil, &resp)
}

func (c *RegistryClient) Contracts(ctx context.Context) (*api.ContractsResponse, error) {
	var resp api.ContractsResponse
	return &resp, c.get(ctx, "/api/v1/contracts", nil, &resp)
}

func (c *RegistryClient) SetOwner(ctx context.Context, req api.SetOwnerRequest) error {
	return c.post(ctx, "/api/v1/registry/owner", req, nil)
}

func (c *RegistryClient) SetSubnode(ctx context.Context, req api.SetSubnodeRequest) (common.Hash, error) {
	var resp api.NodeResult
	err := c.post(ctx, "/api/v1/registry/subnode", req, &resp)
	return resp.Node, err
}

func (c *RegistryClient) SetRecord(ctx context.Context, req api.SetRecordRequest) error {
	return c.post(ctx, "/api/v1/registry/record", req, nil)
}

func (c *RegistryClient) SetResolver(ctx context.Context, req api.SetResolverRequest) error {
	return c.post(ctx, "/api/v1/registry/resolver", req, nil)
}

func (c *RegistryClient) SetTTL(ctx context.Context, req api.SetTTLRequest) error {
	return c.post(ctx, "/api/v1/registry/ttl", req, nil)
}

func (c *RegistryClient) Register(ctx context.Context, req api.RegisterRequest) (*api.ExpiryResult, error) {
	var resp api.ExpiryResult
	return &resp, c.post(ctx, "/api/v1/controller/register", req, &resp)
}

func (c *RegistryClient) Renew(ctx context.Context, req api.RenewRequest) (*api.ExpiryResult, error) {
	var resp api.ExpiryResult
	return &resp, c.post(ctx, "/api/v1/controller/renew", req, &resp)
}

func (c *RegistryClient) Reclaim(ctx context.Context, req api.ReclaimRequest) (*api.ExpiryResult, error) {
	var resp api.ExpiryResult
	return &resp, c.post(ctx, "/api/v1/registrar/reclaim", req, &resp)
}

func (c *RegistryClient) TransferName(ctx context.Context, req api.TransferNameRequest) error {
	return c.post(ctx, "/api/v1/registrar/transfer", req, nil)
}

func (c *RegistryClient) SetRecords(ctx context.Context, req api.RecordsRequest) error {
	return c.post(ctx, "/api/v1/resolver/records", req, nil)
}

func (c *RegistryClient) ClearRecords(ctx context.Context, node common.Hash) error {
	return c.post(ctx, "/api/v1/resolver/clear", api.ClearRecordsRequest{Node: node}, nil)
}

func (c *RegistryClient) SetReverseName(ctx context.Context, name string) (common.Hash, error) {
	var resp api.NodeResult
	err := c.post(ctx, "/api/v1/reverse/name", api.ReverseNameRequest{Name: name}, &resp)
	return resp.Node, err
}

func (c *RegistryClient) TransferTokens(ctx context.Context, req api.TokenTransferRequest) error {
	return c.post(ctx, "/api/v1/ledger/transfer", req, nil)
}

func (c *RegistryClient) Mint(ctx context.Context, req api.TokenTransferRequest) error {
	return c.post(ctx, "/api/v1/admin/mint", req, nil)
}

func (c *RegistryClient) UpgradeController(ctx context.Context) error {
	return c.post(ctx, "/api/v1/admin/upgrade", struct{}{}, nil)
}

func (c *RegistryClient) TransferOwnership(ctx context.Context, newAdmin common.Address) error {
	return c.post(ctx, "/api/v1/admin/transfer-ownership", api.TransferOwnershipRequest{NewAdmin: newAdmin}, nil)
}

func (c *RegistryClient) InitializeV2(ctx context.Context, newBase common.Address) error {
	return c.post(ctx, "/api/v1/admin/initialize-v2", api.InitializeV2Request{NewBase: newBase}, nil)
}

func (c *RegistryClient) Withdraw(ctx context.Context) error {
	return c.post(ctx, "/api/v1/admin/withdraw", struct{}{}, nil)
}

func (c *RegistryClient) RecoverFunds(ctx context.Context, req api.RecoverFundsRequest) error {
	return c.post(ctx, "/api/v1/admin/recover-funds", req, nil)
}

func (c *RegistryClient) Snapshot(ctx context.Context) (*api.SnapshotResult, error) {
	var resp api.SnapshotResult
	return &resp, c.post(ctx, "/api/v1/admin/snapshot", struct{}{}, &resp)
}
