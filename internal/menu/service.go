package menu

import (
	"context"
	"fmt"

	"github.com/bitedash/bitedash-backend/pkg/db/models"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
)

// Service answers availability questions during order settlement.
type Service interface {
	// ResolveForOrder loads the requested items and confirms every one
	// exists, belongs to the vendor, and is currently available.
	ResolveForOrder(ctx context.Context, vendorID int64, itemIDs []int64) (map[int64]models.MenuItem, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]models.MenuItem, error)
}

type service struct {
	repo Repository
}

// NewService wires a menu service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ResolveForOrder(ctx context.Context, vendorID int64, itemIDs []int64) (map[int64]models.MenuItem, error) {
	if vendorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if len(itemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one menu item required")
	}

	items, err := s.repo.FindByIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.MenuItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var missing, foreign, unavailable []int64
	seen := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		item, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case item.VendorID != vendorID:
			foreign = append(foreign, id)
		case !item.IsAvailable:
			unavailable = append(unavailable, id)
		}
	}

	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found").
			WithDetails(map[string]any{"menu_item_ids": missing})
	}
	if len(foreign) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item does not belong to vendor").
			WithDetails(map[string]any{"menu_item_ids": foreign})
	}
	if len(unavailable) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "menu item unavailable").
			WithDetails(map[string]any{"menu_item_ids": unavailable})
	}

	return byID, nil
}

func (s *service) ListByVendor(ctx context.Context, vendorID int64) ([]models.MenuItem, error) {
	if vendorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return s.repo.ListByVendor(ctx, vendorID)
}
