package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/config"
	"github.com/ptichkin/brooder/models"
)

// ERPService exports issued orders to the external 1C ledger. It satisfies
// businessflow.LedgerExporter. When disabled in config every call is a no-op.
type ERPService struct {
	config *config.ERPConfig
	client *http.Client
}

// NewERPService creates a new ERP export service instance
func NewERPService(cfg *config.ERPConfig) *ERPService {
	return &ERPService{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

var _ businessflow.LedgerExporter = (*ERPService)(nil)

// erpSaleDocument is the 1C sale document payload
type erpSaleDocument struct {
	ExternalID string  `json:"external_id"`
	Phone      string  `json:"phone"`
	Breed      string  `json:"breed"`
	Incubator  string  `json:"incubator"`
	Date       string  `json:"date"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Total      float64 `json:"total"`
}

// ExportIssuedOrder posts one sale document to the ledger
func (e *ERPService) ExportIssuedOrder(ctx context.Context, order *models.Order) error {
	if !e.config.Enabled {
		return nil
	}

	doc := erpSaleDocument{
		ExternalID: order.UUID.String(),
		Phone:      order.Phone,
		Breed:      order.Breed,
		Incubator:  order.Incubator,
		Date:       order.Date.Format("2006-01-02"),
		Quantity:   order.Quantity,
		Price:      order.Price,
		Total:      order.Total(),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal sale document: %w", err)
	}

	url := fmt.Sprintf("%s/hs/sales/documents", e.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create ERP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(e.config.Username, e.config.Password)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ERP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ERP export rejected with status %d", resp.StatusCode)
	}
	return nil
}
