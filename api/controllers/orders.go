package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bitedash/bitedash-backend/api/middleware"
	"github.com/bitedash/bitedash-backend/api/responses"
	"github.com/bitedash/bitedash-backend/api/validators"
	ordersvc "github.com/bitedash/bitedash-backend/internal/orders"
	settlementsvc "github.com/bitedash/bitedash-backend/internal/settlement"
	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
	"github.com/bitedash/bitedash-backend/pkg/logger"
)

// PlaceOrder settles a new order for the authenticated payer.
func PlaceOrder(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order, true))
	}
}

// GetOrder returns one order. Pickup credentials are shown only to the payer.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseID(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())
		role := middleware.RoleFromContext(r.Context())
		if order.PayerID != actorID && order.VendorID != actorID && !role.IsPrivileged() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user"))
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order, order.PayerID == actorID))
	}
}

// ListMyOrders lists orders placed by the authenticated payer.
func ListMyOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := orderListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListByPayer(r.Context(), middleware.UserIDFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListResponse(orders, true))
	}
}

// ListVendorOrders lists orders targeting the authenticated vendor.
func ListVendorOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := orderListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListByVendor(r.Context(), middleware.UserIDFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListResponse(orders, false))
	}
}

// LookupOrderByToken resolves a scanned pickup token to its order so counter
// staff can pull up an order without typing anything.
func LookupOrderByToken(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")

		order, err := svc.LookupByPickupToken(
			r.Context(),
			token,
			middleware.UserIDFromContext(r.Context()),
			middleware.RoleFromContext(r.Context()),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order, false))
	}
}

// TransitionOrder moves an order along its lifecycle.
func TransitionOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseID(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.Transition(r.Context(), ordersvc.TransitionInput{
			OrderID:   orderID,
			Target:    target,
			ActorID:   middleware.UserIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
			Remarks:   payload.Remarks,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order, false))
	}
}

// VerifyPickup confirms a pickup proof and marks the order delivered.
func VerifyPickup(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseID(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyPickupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Token == "" && payload.OTP == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "pickup token or otp required"))
			return
		}

		order, err := svc.VerifyPickup(r.Context(), ordersvc.VerifyPickupInput{
			OrderID:   orderID,
			Token:     payload.Token,
			OTP:       payload.OTP,
			ActorID:   middleware.UserIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order, false))
	}
}

// RateOrder records the payer's one-time rating of a delivered order.
func RateOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseID(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload rateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Rate(r.Context(), ordersvc.RateInput{
			OrderID:  orderID,
			ActorID:  middleware.UserIDFromContext(r.Context()),
			Rating:   payload.Rating,
			Feedback: payload.Feedback,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order, true))
	}
}

// OrderHistory returns the append-only status audit trail for an order.
func OrderHistory(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseID(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.History(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderHistoryResponse, len(entries))
		for i, entry := range entries {
			out[i] = newOrderHistoryResponse(entry)
		}
		responses.WriteSuccess(w, out)
	}
}

// VendorRating returns the aggregate rating for a vendor.
func VendorRating(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := validators.ParseID(chi.URLParam(r, "vendorID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		avg, count, err := svc.VendorRating(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"vendor_id":      vendorID,
			"average_rating": avg,
			"rating_count":   count,
		})
	}
}

type placeOrderRequest struct {
	VendorID       int64                 `json:"vendor_id" validate:"required,gt=0"`
	OrganizationID int64                 `json:"organization_id" validate:"required,gt=0"`
	Total          string                `json:"total" validate:"required"`
	Items          []placeOrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type placeOrderItemInput struct {
	MenuItemID int64 `json:"menu_item_id" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"required,min=1"`
}

func (p placeOrderRequest) toInput(r *http.Request) (settlementsvc.PlaceOrderInput, error) {
	total, err := decimal.NewFromString(p.Total)
	if err != nil {
		return settlementsvc.PlaceOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid total")
	}

	items := make([]settlementsvc.ItemInput, len(p.Items))
	for i, item := range p.Items {
		items[i] = settlementsvc.ItemInput{MenuItemID: item.MenuItemID, Quantity: item.Quantity}
	}

	return settlementsvc.PlaceOrderInput{
		PayerID:        middleware.UserIDFromContext(r.Context()),
		VendorID:       p.VendorID,
		OrganizationID: p.OrganizationID,
		Items:          items,
		ClientTotal:    total,
	}, nil
}

type transitionRequest struct {
	Status  string `json:"status" validate:"required"`
	Remarks string `json:"remarks"`
}

type verifyPickupRequest struct {
	Token string `json:"token"`
	OTP   string `json:"otp"`
}

type rateOrderRequest struct {
	Rating   int     `json:"rating" validate:"required,min=1,max=5"`
	Feedback *string `json:"feedback"`
}

func orderListFilter(r *http.Request) (ordersvc.ListFilter, error) {
	page, err := validators.ParsePage(r)
	if err != nil {
		return ordersvc.ListFilter{}, err
	}

	filter := ordersvc.ListFilter{Limit: page.Limit, Offset: page.Offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, parseErr := enums.ParseOrderStatus(raw)
		if parseErr != nil {
			return ordersvc.ListFilter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter")
		}
		filter.Status = &status
	}
	return filter, nil
}

type orderResponse struct {
	ID                 int64               `json:"id"`
	OrderNumber        string              `json:"order_number"`
	PayerID            int64               `json:"payer_id"`
	VendorID           int64               `json:"vendor_id"`
	OrganizationID     int64               `json:"organization_id"`
	TotalAmount        string              `json:"total_amount"`
	PlatformCommission string              `json:"platform_commission"`
	VendorPayout       string              `json:"vendor_payout"`
	Status             string              `json:"status"`
	PickupToken        string              `json:"pickup_token,omitempty"`
	PickupOTP          string              `json:"pickup_otp,omitempty"`
	Rating             *int                `json:"rating,omitempty"`
	Feedback           *string             `json:"feedback,omitempty"`
	Items              []orderItemResponse `json:"items,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	Subtotal   string `json:"subtotal"`
}

type orderHistoryResponse struct {
	PreviousStatus *string   `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ChangedBy      int64     `json:"changed_by"`
	ChangedByRole  string    `json:"changed_by_role"`
	Remarks        string    `json:"remarks,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func newOrderResponse(order *models.Order, includePickup bool) orderResponse {
	if order == nil {
		return orderResponse{}
	}

	resp := orderResponse{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		PayerID:            order.PayerID,
		VendorID:           order.VendorID,
		OrganizationID:     order.OrganizationID,
		TotalAmount:        order.TotalAmount.StringFixed(2),
		PlatformCommission: order.PlatformCommission.StringFixed(2),
		VendorPayout:       order.VendorPayout.StringFixed(2),
		Status:             string(order.Status),
		Rating:             order.Rating,
		Feedback:           order.Feedback,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	if includePickup {
		resp.PickupToken = order.PickupToken
		resp.PickupOTP = order.PickupOTP
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.StringFixed(2),
			Subtotal:   item.Subtotal.StringFixed(2),
		})
	}
	return resp
}

func newOrderListResponse(orders []models.Order, includePickup bool) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = newOrderResponse(&orders[i], includePickup)
	}
	return out
}

func newOrderHistoryResponse(entry models.OrderStatusHistory) orderHistoryResponse {
	resp := orderHistoryResponse{
		NewStatus:     string(entry.NewStatus),
		ChangedBy:     entry.ChangedBy,
		ChangedByRole: string(entry.ChangedByRole),
		Remarks:       entry.Remarks,
		CreatedAt:     entry.CreatedAt,
	}
	if entry.PreviousStatus != nil {
		prev := string(*entry.PreviousStatus)
		resp.PreviousStatus = &prev
	}
	return resp
}
