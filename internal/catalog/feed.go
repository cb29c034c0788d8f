package catalog

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"web-shop/internal/apperr"
	"web-shop/shared/pkg/models"
)

// Feed applies catalog events to a Store. Every event kind maps to an
// upsert or a delete-if-exists, so redelivery is harmless.
type Feed struct {
	Store Store
	Log   zerolog.Logger
}

func (f *Feed) Apply(ctx context.Context, eventType string, payload json.RawMessage) error {
	switch eventType {
	case models.TypeCategoryCreated, models.TypeCategoryUpdated:
		var p models.CategoryPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if err := checkID(p.ID); err != nil {
			return err
		}
		if p.Name == "" {
			return apperr.Validation("category %d has no name", p.ID)
		}
		return f.Store.UpsertCategory(ctx, Category{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			ImageURL:    p.ImageURL,
		})

	case models.TypeCategoryDeleted:
		var p models.DeletedPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if err := checkID(p.ID); err != nil {
			return err
		}
		return f.Store.DeleteCategory(ctx, p.ID)

	case models.TypeProductCreated, models.TypeProductUpdated:
		var p models.ProductPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if err := checkID(p.ID); err != nil {
			return err
		}
		if p.Name == "" || p.Price < 0 {
			return apperr.Validation("product %d: invalid name or price", p.ID)
		}
		return f.Store.UpsertProduct(ctx, Product{
			ID:          p.ID,
			CategoryID:  p.CategoryID,
			Name:        p.Name,
			Description: p.Description,
			ImageURL:    p.ImageURL,
			PriceCents:  PriceToCents(p.Price),
		})

	case models.TypeProductDeleted:
		var p models.DeletedPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		if err := checkID(p.ID); err != nil {
			return err
		}
		return f.Store.DeleteProduct(ctx, p.ID)

	default:
		f.Log.Debug().Str("type", eventType).Msg("catalog event ignored")
		return nil
	}
}

func decode(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return apperr.Validation("bad catalog payload: %v", err)
	}
	return nil
}

func checkID(id int64) error {
	if id <= 0 {
		return apperr.Validation("catalog payload without id")
	}
	return nil
}
