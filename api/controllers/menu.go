package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bitedash/bitedash-backend/api/responses"
	"github.com/bitedash/bitedash-backend/api/validators"
	menusvc "github.com/bitedash/bitedash-backend/internal/menu"
	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/logger"
)

// VendorMenu lists a vendor's menu items.
func VendorMenu(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := validators.ParseID(chi.URLParam(r, "vendorID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByVendor(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]menuItemResponse, len(items))
		for i, item := range items {
			out[i] = newMenuItemResponse(item)
		}
		responses.WriteSuccess(w, out)
	}
}

type menuItemResponse struct {
	ID          int64  `json:"id"`
	VendorID    int64  `json:"vendor_id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	IsAvailable bool   `json:"is_available"`
}

func newMenuItemResponse(item models.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          item.ID,
		VendorID:    item.VendorID,
		Name:        item.Name,
		Price:       item.Price.StringFixed(2),
		IsAvailable: item.IsAvailable,
	}
}
