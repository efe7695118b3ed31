package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	ingestdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/ingest/domain"
	normalizedomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/normalize/domain"
	obsmetrics "github.com/Chloy02/akasa-air-data-pipeline-task/internal/observability/metrics"
	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// unknownSentinel replaces a missing customer_name or region. Rows are cleaned,
// not dropped, when these optional fields are absent.
const unknownSentinel = "Unknown"

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

// timestampLayouts are tried in order. Layouts without an offset are
// interpreted as already being in the configured timezone.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	loc      *time.Location
	validate *validator.Validate
	metrics  *obsmetrics.Metrics
}

func NewService(p ServiceParam) (normalizedomain.Service, error) {
	loc, err := p.Cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Service{
		log:      p.Log.Named("normalize"),
		loc:      loc,
		validate: validator.New(),
		metrics:  p.Metrics,
	}, nil
}

func (s *Service) Normalize(ctx context.Context, rawCustomers []ingestdomain.RawCustomer, rawOrders []ingestdomain.RawOrder) (*snapshotdomain.Snapshot, *normalizedomain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	report := &normalizedomain.Report{}

	customers := s.normalizeCustomers(rawCustomers, report)
	orders, items := s.normalizeOrders(rawOrders, report)

	// Orphan pass: flag orders whose mobile matches no surviving customer.
	byMobile := make(map[string]struct{}, len(customers))
	for _, c := range customers {
		byMobile[c.MobileNumber] = struct{}{}
	}
	var ref time.Time
	for i := range orders {
		if _, ok := byMobile[orders[i].MobileNumber]; !ok {
			orders[i].Orphan = true
			report.Add(normalizedomain.IssueOrphanOrder, orders[i].OrderID, "no customer with mobile "+orders[i].MobileNumber)
		}
		if orders[i].OrderDateTime.After(ref) {
			ref = orders[i].OrderDateTime
		}
	}

	sort.Slice(customers, func(i, j int) bool { return customers[i].CustomerID < customers[j].CustomerID })
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderID < orders[j].OrderID })
	sort.Slice(items, func(i, j int) bool {
		if items[i].OrderID != items[j].OrderID {
			return items[i].OrderID < items[j].OrderID
		}
		return items[i].SKUID < items[j].SKUID
	})

	s.metrics.RecordIngested("customers", len(customers))
	s.metrics.RecordIngested("orders", len(orders))
	s.metrics.RecordIngested("order_items", len(items))

	s.log.Info("normalization complete",
		zap.Int("customers", len(customers)),
		zap.Int("orders", len(orders)),
		zap.Int("order_items", len(items)),
		zap.Int("issues", len(report.Issues)),
	)

	return &snapshotdomain.Snapshot{
		Customers:     customers,
		Orders:        orders,
		Items:         items,
		ReferenceTime: ref,
		Location:      s.loc,
	}, report, nil
}

func (s *Service) normalizeCustomers(raw []ingestdomain.RawCustomer, report *normalizedomain.Report) []snapshotdomain.Customer {
	byID := make(map[string]snapshotdomain.Customer)
	mobileOwner := make(map[string]string)
	var out []snapshotdomain.Customer

	report.CustomersRead = len(raw)
	for _, rc := range raw {
		if err := s.validate.Struct(rc); err != nil {
			key := rc.CustomerID
			if key == "" {
				key = rc.MobileNumber
			}
			report.Add(normalizedomain.IssueMissingField, key, "customer row missing customer_id or mobile_number")
			s.metrics.RecordRejected(string(normalizedomain.IssueMissingField), 1)
			continue
		}
		if !mobilePattern.MatchString(rc.MobileNumber) {
			report.Add(normalizedomain.IssueMalformedMobile, rc.CustomerID, fmt.Sprintf("mobile %q is not a 10-digit numeral", rc.MobileNumber))
			s.metrics.RecordRejected(string(normalizedomain.IssueMalformedMobile), 1)
			continue
		}

		c := snapshotdomain.Customer{
			CustomerID:   rc.CustomerID,
			CustomerName: defaultIfEmpty(rc.CustomerName, unknownSentinel),
			MobileNumber: rc.MobileNumber,
			Region:       defaultIfEmpty(rc.Region, unknownSentinel),
		}

		if seen, ok := byID[c.CustomerID]; ok {
			if seen == c {
				// Exact duplicate, dedupe silently.
				continue
			}
			report.Add(normalizedomain.IssueDuplicateKey, c.CustomerID, "duplicate customer_id with differing fields, first-seen kept")
			s.log.Warn("conflicting duplicate customer", zap.String("customer_id", c.CustomerID))
			continue
		}
		if owner, ok := mobileOwner[c.MobileNumber]; ok && owner != c.CustomerID {
			report.Add(normalizedomain.IssueConflictingMobile, c.CustomerID, fmt.Sprintf("mobile %s already belongs to customer %s", c.MobileNumber, owner))
			s.metrics.RecordRejected(string(normalizedomain.IssueConflictingMobile), 1)
			continue
		}

		byID[c.CustomerID] = c
		mobileOwner[c.MobileNumber] = c.CustomerID
		out = append(out, c)
	}

	report.CustomersAccepted = len(out)
	return out
}

// normalizeOrders flattens each raw order into one Order plus its line items.
// Two explicit passes over the raw slice: order-level fields first, then items,
// so no shared mutable accumulation is needed.
func (s *Service) normalizeOrders(raw []ingestdomain.RawOrder, report *normalizedomain.Report) ([]snapshotdomain.Order, []snapshotdomain.OrderItem) {
	report.OrdersRead = len(raw)

	// Pass 1: one Order per distinct order_id, total_amount read once from the
	// order-level field.
	byID := make(map[string]snapshotdomain.Order)
	rejected := make(map[string]struct{})
	var orderIDs []string
	for _, ro := range raw {
		if err := s.validate.Struct(ro); err != nil {
			report.Add(normalizedomain.IssueMissingField, ro.OrderID, "order missing a required field")
			s.metrics.RecordRejected(string(normalizedomain.IssueMissingField), 1)
			if ro.OrderID != "" {
				rejected[ro.OrderID] = struct{}{}
			}
			continue
		}
		if _, ok := rejected[ro.OrderID]; ok {
			continue
		}

		amount, err := strconv.ParseFloat(ro.TotalAmount, 64)
		if err != nil {
			report.Add(normalizedomain.IssueBadAmount, ro.OrderID, fmt.Sprintf("total_amount %q is not numeric", ro.TotalAmount))
			s.metrics.RecordRejected(string(normalizedomain.IssueBadAmount), 1)
			rejected[ro.OrderID] = struct{}{}
			continue
		}
		ts, err := s.parseTimestamp(ro.OrderDateTime)
		if err != nil {
			report.Add(normalizedomain.IssueBadTimestamp, ro.OrderID, err.Error())
			s.metrics.RecordRejected(string(normalizedomain.IssueBadTimestamp), 1)
			rejected[ro.OrderID] = struct{}{}
			continue
		}

		o := snapshotdomain.Order{
			OrderID:       ro.OrderID,
			MobileNumber:  ro.MobileNumber,
			OrderDateTime: ts,
			TotalAmount:   amount,
		}
		if seen, ok := byID[o.OrderID]; ok {
			if !seen.OrderDateTime.Equal(o.OrderDateTime) || seen.MobileNumber != o.MobileNumber || seen.TotalAmount != o.TotalAmount {
				report.Add(normalizedomain.IssueDuplicateKey, o.OrderID, "repeated order_id with differing order fields, first-seen kept")
				s.log.Warn("conflicting duplicate order", zap.String("order_id", o.OrderID))
			}
			continue
		}
		byID[o.OrderID] = o
		orderIDs = append(orderIDs, o.OrderID)
	}

	// Pass 2: line items for every surviving order. Exact-duplicate items are
	// deduped silently; a rejected order takes its items with it.
	seenItems := make(map[string]struct{})
	var items []snapshotdomain.OrderItem
	for _, ro := range raw {
		report.ItemsRead += len(ro.Items)
		if _, ok := byID[ro.OrderID]; !ok {
			continue
		}
		for _, ri := range ro.Items {
			if strings.TrimSpace(ri.SKUID) == "" {
				report.Add(normalizedomain.IssueMissingField, ro.OrderID, "line item missing sku_id")
				s.metrics.RecordRejected(string(normalizedomain.IssueMissingField), 1)
				continue
			}
			count, err := strconv.Atoi(ri.SKUCount)
			if err != nil || count <= 0 {
				report.Add(normalizedomain.IssueBadSKUCount, ro.OrderID, fmt.Sprintf("sku %s has invalid count %q", ri.SKUID, ri.SKUCount))
				s.metrics.RecordRejected(string(normalizedomain.IssueBadSKUCount), 1)
				continue
			}
			dedupeKey := ro.OrderID + "\x00" + ri.SKUID + "\x00" + ri.SKUCount
			if _, ok := seenItems[dedupeKey]; ok {
				continue
			}
			seenItems[dedupeKey] = struct{}{}
			items = append(items, snapshotdomain.OrderItem{
				OrderID:  ro.OrderID,
				SKUID:    ri.SKUID,
				SKUCount: count,
			})
		}
	}

	orders := make([]snapshotdomain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, byID[id])
	}
	report.OrdersAccepted = len(orders)
	report.ItemsAccepted = len(items)
	return orders, items
}

// parseTimestamp converts a raw timestamp into the configured civil timezone.
// A timestamp carrying an explicit offset is converted; one without is
// interpreted as already being in that timezone.
func (s *Service) parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(s.loc), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("order_date_time %q is not a recognized timestamp", value)
}

func defaultIfEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
