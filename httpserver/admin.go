package httpserver

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/namespace-registry/api"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/snapshot"
)

// AdminRouter serves the administrative writes. Authorization is left to the
// components: each checks the recovered caller against its own administrator.
func (h *Handler) AdminRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/upgrade", write(h, "admin.upgrade", h.upgrade))
	r.Post("/transfer-ownership", write(h, "admin.transfer_ownership", h.transferOwnership))
	r.Post("/initialize-v2", write(h, "admin.initialize_v2", h.initializeV2))
	r.Post("/withdraw", write(h, "admin.withdraw", h.withdraw))
	r.Post("/recover-funds", write(h, "admin.recover_funds", h.recoverFunds))
	r.Post("/mint", write(h, "admin.mint", h.mint))
	r.Post("/snapshot", h.handleSnapshot)
	return r
}

// upgrade migrates the controller to its second generation. The deployment
// serializes the migration itself.
func (h *Handler) upgrade(caller common.Address, _ struct{}) (any, error) {
	if err := h.d.UpgradeControllerToV2(caller); err != nil {
		return nil, err
	}
	h.log.Info("Controller upgraded", "caller", caller.Hex())
	return api.StatusResult{Status: "upgraded"}, nil
}

func (h *Handler) transferOwnership(caller common.Address, req api.TransferOwnershipRequest) (any, error) {
	return h.submit(func() (any, error) {
		return nil, h.d.Controller.TransferContractOwnership(caller, req.NewAdmin)
	})
}

func (h *Handler) initializeV2(caller common.Address, req api.InitializeV2Request) (any, error) {
	return h.submit(func() (any, error) {
		return nil, h.d.Controller.InitializeV2(caller, req.NewBase)
	})
}

func (h *Handler) withdraw(caller common.Address, _ struct{}) (any, error) {
	return h.submit(func() (any, error) {
		return nil, h.d.Controller.Withdraw(caller)
	})
}

func (h *Handler) recoverFunds(caller common.Address, req api.RecoverFundsRequest) (any, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	return h.submit(func() (any, error) {
		asset, err := chain.Resolve[interfaces.AssetLedger](h.d.Chain, req.Asset)
		if err != nil {
			return nil, err
		}
		return nil, h.d.Controller.RecoverFunds(caller, asset, req.Destination, amount)
	})
}

func (h *Handler) mint(caller common.Address, req api.TokenTransferRequest) (any, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	return h.submit(func() (any, error) {
		return nil, h.d.Native.Mint(caller, req.To, amount)
	})
}

// handleSnapshot stores the full chain state. Only the registry administrator
// may take one. The body is signed like any other write and otherwise ignored.
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	caller, _, err := signedBody(r)
	if err == nil {
		err = h.d.Chain.View(func() error {
			return h.d.Registry.RequireAdmin(caller)
		})
	}
	if err == nil && h.storage == nil {
		err = fmt.Errorf("%w: no snapshot storage configured", interfaces.ErrUnsupportedOperation)
	}
	if err != nil {
		h.metrics.ObserveCall("admin.snapshot", err)
		h.writeError(w, r, err)
		return
	}

	var (
		doc *snapshot.Document
		id  interfaces.ContentID
	)
	doc, err = snapshot.Take(h.d.Chain)
	if err == nil {
		id, err = snapshot.Save(r.Context(), h.storage, doc, h.log)
	}
	h.metrics.ObserveSnapshot("save", err)
	h.metrics.ObserveCall("admin.snapshot", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, api.SnapshotResult{ID: id.String(), Location: h.storage.LocationURI(), Taken: doc.Taken})
}
