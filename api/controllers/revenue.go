package controllers

import (
	"net/http"
	"time"

	"github.com/bitedash/bitedash-backend/api/responses"
	"github.com/bitedash/bitedash-backend/api/validators"
	revenuesvc "github.com/bitedash/bitedash-backend/internal/revenue"
	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
	"github.com/bitedash/bitedash-backend/pkg/logger"
)

// PlatformWallet returns the platform revenue aggregate.
func PlatformWallet(svc revenuesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := svc.PlatformWallet(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPlatformWalletResponse(wallet))
	}
}

// RevenueLogs lists platform revenue entries, newest first.
func RevenueLogs(svc revenuesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := revenuesvc.LogFilter{Limit: page.Limit, Offset: page.Offset}
		if raw := r.URL.Query().Get("type"); raw != "" {
			revenueType, parseErr := enums.ParseRevenueType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid revenue type"))
				return
			}
			filter.Type = &revenueType
		}
		if raw := r.URL.Query().Get("order_id"); raw != "" {
			orderID, parseErr := validators.ParseID(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			filter.OrderID = &orderID
		}

		logs, err := svc.Logs(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]revenueLogResponse, len(logs))
		for i := range logs {
			out[i] = newRevenueLogResponse(logs[i])
		}
		responses.WriteSuccess(w, out)
	}
}

type platformWalletResponse struct {
	Balance            string    `json:"balance"`
	CommissionTotal    string    `json:"commission_total"`
	GatewayMarkupTotal string    `json:"gateway_markup_total"`
	PromotionTotal     string    `json:"promotion_total"`
	SubscriptionTotal  string    `json:"subscription_total"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type revenueLogResponse struct {
	ID             int64     `json:"id"`
	Type           string    `json:"type"`
	Amount         string    `json:"amount"`
	OrderID        *int64    `json:"order_id,omitempty"`
	VendorID       *int64    `json:"vendor_id,omitempty"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func newPlatformWalletResponse(wallet *models.PlatformWallet) platformWalletResponse {
	if wallet == nil {
		return platformWalletResponse{}
	}
	return platformWalletResponse{
		Balance:            wallet.Balance.StringFixed(2),
		CommissionTotal:    wallet.CommissionTotal.StringFixed(2),
		GatewayMarkupTotal: wallet.GatewayMarkupTotal.StringFixed(2),
		PromotionTotal:     wallet.PromotionTotal.StringFixed(2),
		SubscriptionTotal:  wallet.SubscriptionTotal.StringFixed(2),
		UpdatedAt:          wallet.UpdatedAt,
	}
}

func newRevenueLogResponse(log models.PlatformRevenueLog) revenueLogResponse {
	return revenueLogResponse{
		ID:             log.ID,
		Type:           string(log.Type),
		Amount:         log.Amount.StringFixed(2),
		OrderID:        log.OrderID,
		VendorID:       log.VendorID,
		OrganizationID: log.OrganizationID,
		Description:    log.Description,
		CreatedAt:      log.CreatedAt,
	}
}
