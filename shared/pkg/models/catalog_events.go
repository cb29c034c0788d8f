package models

// Catalog feed routing keys. Delete events carry only the entity id.
const (
	TypeCategoryCreated = "catalog.category.created"
	TypeCategoryUpdated = "catalog.category.updated"
	TypeCategoryDeleted = "catalog.category.deleted"
	TypeProductCreated  = "catalog.product.created"
	TypeProductUpdated  = "catalog.product.updated"
	TypeProductDeleted  = "catalog.product.deleted"
)

type CategoryPayload struct {
	ID          int64  `json:"id"`
	Name        string `json:"category_name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type ProductPayload struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"category_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
}

type DeletedPayload struct {
	ID int64 `json:"id"`
}
