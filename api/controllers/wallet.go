package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitedash/bitedash-backend/api/middleware"
	"github.com/bitedash/bitedash-backend/api/responses"
	"github.com/bitedash/bitedash-backend/api/validators"
	walletsvc "github.com/bitedash/bitedash-backend/internal/wallet"
	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
	"github.com/bitedash/bitedash-backend/pkg/logger"
)

// InitializeWallet opens a wallet for the authenticated user.
func InitializeWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := svc.Initialize(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletResponse(wallet))
	}
}

// TopUpWallet credits the authenticated user's wallet. Payment capture happens
// upstream; this endpoint records the resulting balance change.
func TopUpWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload topUpRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		txn, err := svc.Credit(r.Context(), walletsvc.MutationInput{
			OwnerID:       middleware.UserIDFromContext(r.Context()),
			Amount:        amount,
			ReferenceType: enums.ReferenceTypeTopUp,
			Description:   payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletTxnResponse(txn))
	}
}

// WalletBalance returns the authenticated user's wallet.
func WalletBalance(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := svc.Balance(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletResponse(wallet))
	}
}

// WalletHistory returns the authenticated user's transaction chain, newest
// first. Optional from/to query parameters (RFC 3339) bound the range.
func WalletHistory(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := walletsvc.HistoryFilter{Limit: page.Limit, Offset: page.Offset}
		if filter.From, err = parseTimeParam(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = parseTimeParam(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.History(r.Context(), middleware.UserIDFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]walletTxnResponse, len(txns))
		for i := range txns {
			out[i] = newWalletTxnResponse(&txns[i])
		}
		responses.WriteSuccess(w, out)
	}
}

// WalletSummary returns the wallet with lifetime credit and debit totals.
func WalletSummary(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.Summary(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, walletSummaryResponse{
			Wallet:       newWalletResponse(summary.Wallet),
			TotalCredits: summary.TotalCredits.StringFixed(2),
			TotalDebits:  summary.TotalDebits.StringFixed(2),
		})
	}
}

func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name+" timestamp")
	}
	return &parsed, nil
}

type topUpRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description"`
}

type walletResponse struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Balance   string    `json:"balance"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

type walletSummaryResponse struct {
	Wallet       walletResponse `json:"wallet"`
	TotalCredits string         `json:"total_credits"`
	TotalDebits  string         `json:"total_debits"`
}

type walletTxnResponse struct {
	ID            int64     `json:"id"`
	Seq           int64     `json:"seq"`
	Amount        string    `json:"amount"`
	Direction     string    `json:"direction"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	ReferenceID   *int64    `json:"reference_id,omitempty"`
	ReferenceType string    `json:"reference_type,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newWalletResponse(wallet *models.UserWallet) walletResponse {
	if wallet == nil {
		return walletResponse{}
	}
	return walletResponse{
		ID:        wallet.ID,
		OwnerID:   wallet.OwnerID,
		Balance:   wallet.Balance.StringFixed(2),
		IsActive:  wallet.IsActive,
		UpdatedAt: wallet.UpdatedAt,
	}
}

func newWalletTxnResponse(txn *models.WalletTransaction) walletTxnResponse {
	if txn == nil {
		return walletTxnResponse{}
	}
	return walletTxnResponse{
		ID:            txn.ID,
		Seq:           txn.Seq,
		Amount:        txn.Amount.StringFixed(2),
		Direction:     string(txn.Direction),
		BalanceBefore: txn.BalanceBefore.StringFixed(2),
		BalanceAfter:  txn.BalanceAfter.StringFixed(2),
		ReferenceID:   txn.ReferenceID,
		ReferenceType: string(txn.ReferenceType),
		Description:   txn.Description,
		CreatedAt:     txn.CreatedAt,
	}
}
