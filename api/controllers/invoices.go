package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/api/responses"
	"github.com/lmsinform84-bit/orbfood-backend/api/validators"
	internalinvoices "github.com/lmsinform84-bit/orbfood-backend/internal/invoices"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/pagination"
)

type submitProofRequest struct {
	ProofURL string `json:"proof_url" validate:"required,url"`
}

type verifyInvoiceRequest struct {
	Decision string `json:"decision" validate:"required,oneof=confirm reject"`
}

// SubmitInvoiceProof attaches a vendor's payment proof to the invoice.
func SubmitInvoiceProof(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := validators.ParseURLUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitProofRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.SubmitPaymentProof(r.Context(), internalinvoices.SubmitProofInput{
			InvoiceID: invoiceID,
			ProofURL:  payload.ProofURL,
			Actor:     invoiceActor(actor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "proof_submitted"})
	}
}

// VerifyInvoice records the admin ruling on a submitted payment proof.
func VerifyInvoice(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := validators.ParseURLUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyInvoiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := internalinvoices.ParseVerifyDecision(payload.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Verify(r.Context(), internalinvoices.VerifyInput{
			InvoiceID: invoiceID,
			Decision:  decision,
			Actor:     invoiceActor(actor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "verified"})
	}
}

// InvoiceEstimate projects the fee the store's unbilled completed orders would produce.
func InvoiceEstimate(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var storeID uuid.UUID
		switch {
		case actor.Role == enums.UserRoleAdmin:
			raw := strings.TrimSpace(r.URL.Query().Get("store_id"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store_id is required"))
				return
			}
			storeID, err = uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id"))
				return
			}
		case actor.StoreID != nil:
			storeID = *actor.StoreID
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing"))
			return
		}

		estimate, err := svc.Estimate(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, estimate)
	}
}

// InvoiceDetail returns a single invoice visible to the caller.
func InvoiceDetail(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := validators.ParseURLUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.Get(r.Context(), invoiceID, invoiceActor(actor))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}

// InvoiceActivity returns the invoice's activity log, oldest first.
func InvoiceActivity(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := validators.ParseURLUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.Activity(r.Context(), invoiceID, invoiceActor(actor))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}

// ListInvoices returns a cursor page of invoices scoped to the caller.
func ListInvoices(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := internalinvoices.ListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseInvoiceStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("store_id")); raw != "" {
			storeID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid store id filter"))
				return
			}
			filters.StoreID = &storeID
		}

		list, err := svc.List(r.Context(), internalinvoices.ListInput{
			Actor: invoiceActor(actor),
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Filters: filters,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func invoiceActor(actor requestActor) internalinvoices.Actor {
	return internalinvoices.Actor{
		UserID:  actor.UserID,
		StoreID: actor.StoreID,
		Role:    actor.Role,
	}
}
