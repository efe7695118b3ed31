package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/ingest/domain"
	"go.uber.org/zap"
)

// OrderXMLReader reads the hierarchical order source. Two shapes are accepted:
// nested line items under <items><item>, and the flat legacy shape where each
// <order> element carries a single sku_id/sku_count pair and order-level fields
// repeat per line item.
type OrderXMLReader struct {
	log *zap.Logger
}

func NewOrderXMLReader(log *zap.Logger) domain.OrderReader {
	return &OrderXMLReader{log: log.Named("ingest.xml")}
}

type xmlOrders struct {
	XMLName xml.Name   `xml:"orders"`
	Orders  []xmlOrder `xml:"order"`
}

type xmlOrder struct {
	OrderID       string    `xml:"order_id"`
	MobileNumber  string    `xml:"mobile_number"`
	OrderDateTime string    `xml:"order_date_time"`
	TotalAmount   string    `xml:"total_amount"`
	Items         []xmlItem `xml:"items>item"`

	// Flat legacy shape.
	SKUID    string `xml:"sku_id"`
	SKUCount string `xml:"sku_count"`
}

type xmlItem struct {
	SKUID    string `xml:"sku_id"`
	SKUCount string `xml:"sku_count"`
}

func (r *OrderXMLReader) Read(ctx context.Context, path string) ([]domain.RawOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.SourceUnreadableError{Path: path, Err: err}
	}

	var doc xmlOrders
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.SourceUnreadableError{Path: path, Err: fmt.Errorf("parse xml: %w", err)}
	}

	out := make([]domain.RawOrder, 0, len(doc.Orders))
	items := 0
	for _, o := range doc.Orders {
		raw := domain.RawOrder{
			OrderID:       strings.TrimSpace(o.OrderID),
			MobileNumber:  strings.TrimSpace(o.MobileNumber),
			OrderDateTime: strings.TrimSpace(o.OrderDateTime),
			TotalAmount:   strings.TrimSpace(o.TotalAmount),
		}
		for _, it := range o.Items {
			raw.Items = append(raw.Items, domain.RawLineItem{
				SKUID:    strings.TrimSpace(it.SKUID),
				SKUCount: strings.TrimSpace(it.SKUCount),
			})
		}
		if len(raw.Items) == 0 && strings.TrimSpace(o.SKUID) != "" {
			raw.Items = append(raw.Items, domain.RawLineItem{
				SKUID:    strings.TrimSpace(o.SKUID),
				SKUCount: strings.TrimSpace(o.SKUCount),
			})
		}
		items += len(raw.Items)
		out = append(out, raw)
	}

	r.log.Info("order source read",
		zap.String("path", path),
		zap.Int("orders", len(out)),
		zap.Int("line_items", items),
	)
	return out, nil
}
