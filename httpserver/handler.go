package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/flashbots/go-utils/signature"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/namespace-registry/api"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/controller"
	"github.com/ruteri/namespace-registry/deploy"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/metrics"
	"github.com/ruteri/namespace-registry/namehash"
)

// maxBodySize is the maximum accepted request body (1MB).
const maxBodySize = 1024 * 1024

// RequestError carries the HTTP status an error should be reported with.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func badRequest(format string, args ...any) error {
	return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf(format, args...)}
}

// statusFor maps registry errors to HTTP status codes.
func statusFor(err error) int {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.StatusCode
	case errors.Is(err, interfaces.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrAlreadyInitialized), errors.Is(err, interfaces.ErrAlreadyActiveOrInGrace):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrNotFound), errors.Is(err, interfaces.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrInsufficientBalance),
		errors.Is(err, interfaces.ErrInvalidDuration),
		errors.Is(err, interfaces.ErrZeroAddress),
		errors.Is(err, controller.ErrInvalidLabel):
		return http.StatusUnprocessableEntity
	case errors.Is(err, interfaces.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	case errors.Is(err, interfaces.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Handler serves reads and signed writes against one deployment.
type Handler struct {
	d       *deploy.Deployment
	storage interfaces.StorageBackend
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewHandler creates a handler. storage may be nil, in which case snapshot
// requests fail with 501.
func NewHandler(d *deploy.Deployment, storage interfaces.StorageBackend, m *metrics.Metrics, log *slog.Logger) *Handler {
	return &Handler{
		d:       d,
		storage: storage,
		metrics: m,
		log:     log,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "path", r.URL.Path, "err", err)
	} else {
		h.log.Debug("Request rejected", "path", r.URL.Path, "status", status, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: err.Error(), Code: api.ErrorCode(err)})
}

// view runs fn under the chain's read lock.
func (h *Handler) view(w http.ResponseWriter, r *http.Request, fn func() (any, error)) {
	var out any
	err := h.d.Chain.View(func() error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, out)
}

// signedBody reads the request body and recovers its signer.
func signedBody(r *http.Request) (common.Address, []byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return common.Address{}, nil, badRequest("failed to read request body: %v", err)
	}
	if len(body) > maxBodySize {
		return common.Address{}, nil, &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: errors.New("request body too large")}
	}

	caller, err := signature.Verify(r.Header.Get(api.SignatureHeader), body)
	if err != nil {
		return common.Address{}, nil, &RequestError{StatusCode: http.StatusUnauthorized, Err: fmt.Errorf("invalid request signature: %w", err)}
	}
	return caller, body, nil
}

// write decodes a signed request into T and runs fn with the recovered caller.
// fn is responsible for taking the chain lock.
func write[T any](h *Handler, op string, fn func(caller common.Address, req T) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, body, err := signedBody(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		var req T
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, r, badRequest("invalid request body: %v", err))
			return
		}

		out, err := fn(caller, req)
		h.metrics.ObserveCall(op, err)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		h.log.Debug("Call succeeded", "op", op, "caller", caller.Hex())
		if out == nil {
			out = api.StatusResult{Status: "ok"}
		}
		h.writeJSON(w, out)
	}
}

// submit runs fn as one serialized chain call.
func (h *Handler) submit(fn func() (any, error)) (any, error) {
	var out any
	err := h.d.Chain.Submit(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

func parseHash(raw string) (common.Hash, error) {
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, badRequest("invalid node hash %q", raw)
	}
	return common.BytesToHash(b), nil
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, badRequest("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func resolverAt(d *deploy.Deployment, addr common.Address) (interfaces.RecordResolver, error) {
	return chain.Resolve[interfaces.RecordResolver](d.Chain, addr)
}

func (h *Handler) nodeResponse(node common.Hash) api.NodeResponse {
	reg := h.d.Registry
	return api.NodeResponse{
		Node:     node,
		Exists:   reg.RecordExists(node),
		Owner:    reg.Owner(node),
		Resolver: reg.Resolver(node),
		TTL:      reg.TTL(node),
	}
}

func (h *Handler) HandleNode(w http.ResponseWriter, r *http.Request) {
	node, err := parseHash(chi.URLParam(r, "node"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.view(w, r, func() (any, error) {
		return h.nodeResponse(node), nil
	})
}

func (h *Handler) HandleName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	textKeys := r.URL.Query()["text"]

	h.view(w, r, func() (any, error) {
		node := namehash.NameHash(name)
		resp := api.NameResponse{NodeResponse: h.nodeResponse(node), Name: name}
		if !resp.Exists {
			return nil, fmt.Errorf("%w: no record for %s", interfaces.ErrNotFound, name)
		}
		if resp.Resolver == (common.Address{}) {
			return resp, nil
		}

		res, err := resolverAt(h.d, resp.Resolver)
		if err != nil {
			return nil, err
		}
		resp.Addr = res.Addr(node)
		resp.Contenthash = res.Contenthash(node)
		resp.ReverseName = res.Name(node)
		if len(textKeys) > 0 {
			resp.Texts = make(map[string]string, len(textKeys))
			for _, key := range textKeys {
				resp.Texts[key] = res.Text(node, key)
			}
		}
		return resp, nil
	})
}

func (h *Handler) HandleLabel(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	h.view(w, r, func() (any, error) {
		node, err := h.d.Controller.NodeOf(label)
		if err != nil {
			return nil, err
		}
		base := h.d.BaseRegistrar()
		id := namehash.LabelHash(label)
		entry, _ := base.Entry(id)
		return api.LabelResponse{
			Label:       label,
			Name:        h.d.Controller.NameOf(label),
			Node:        node,
			Available:   base.Available(id),
			Holder:      entry.Holder,
			Expires:     entry.Expires,
			InGrace:     base.IsInGrace(id),
			GracePeriod: uint64(base.GracePeriod().Seconds()),
		}, nil
	})
}

func (h *Handler) HandleReverse(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.view(w, r, func() (any, error) {
		return api.ReverseResponse{
			Address: addr,
			Node:    h.d.Reverse.Node(addr),
			Name:    h.d.Reverse.NameOf(addr),
		}, nil
	})
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.view(w, r, func() (any, error) {
		return api.BalanceResponse{
			Address: addr,
			Symbol:  h.d.Native.Symbol(),
			Balance: h.d.Native.BalanceOf(addr).Dec(),
		}, nil
	})
}

func (h *Handler) HandleContracts(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func() (any, error) {
		return api.ContractsResponse{
			Contracts:       h.d.Addresses(),
			Controller:      h.d.Controller.Implementation(),
			ControllerAdmin: h.d.Controller.Admin(),
			ChainTime:       h.d.Chain.Now(),
			BaseName:        h.d.Options.BaseLabel,
			GracePeriod:     uint64(h.d.BaseRegistrar().GracePeriod().Seconds()),
		}, nil
	})
}
