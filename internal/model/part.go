package model

// Part represents a row in the `parts` table (workshop inventory).
//
// Fields:
//
//	ID          – primary key identifier of the part.
//	Name        – unique part name.
//	SKU         – unique stock keeping unit.
//	Description – optional free-form description.
//	Price       – unit price, never negative.
type Part struct {
	ID          uint64  // parts.id
	Name        string  // parts.name
	SKU         string  // parts.sku
	Description string  // parts.description (nullable, empty when unset)
	Price       float64 // parts.price
}
