package dto

// CreateStockRequest creates a new batch
type CreateStockRequest struct {
	Breed     string  `json:"breed" validate:"required,max=255"`
	Incubator string  `json:"incubator" validate:"required,max=255"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"required,gt=0"`
}

// UpdateStockRequest edits an existing batch. Nil fields are left untouched.
type UpdateStockRequest struct {
	Date     *string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Quantity *int     `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Price    *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
}

// StockResponse is the API view of a batch
type StockResponse struct {
	ID                uint    `json:"id"`
	Breed             string  `json:"breed"`
	Incubator         string  `json:"incubator"`
	Date              string  `json:"date"`
	Quantity          int     `json:"quantity"`
	AvailableQuantity int     `json:"available_quantity"`
	Price             float64 `json:"price"`
	Status            string  `json:"status"`
}

// StockListResponse wraps a list of batches
type StockListResponse struct {
	Stocks []StockResponse `json:"stocks"`
	Total  int             `json:"total"`
}

// ArchiveSweepResponse summarizes one archival sweep run
type ArchiveSweepResponse struct {
	ArchivedBatches int `json:"archived_batches"`
	CancelledOrders int `json:"cancelled_orders"`
	ReturnedUnits   int `json:"returned_units"`
}
