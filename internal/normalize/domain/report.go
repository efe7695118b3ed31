package domain

// IssueKind classifies one per-record validation issue. Issues are
// accumulated, never raised: they surface to the caller after the run.
type IssueKind string

const (
	// IssueMalformedMobile marks a mobile number that is not a 10-digit numeral.
	IssueMalformedMobile IssueKind = "malformed_mobile"
	// IssueMissingField marks a record rejected for a missing required field.
	IssueMissingField IssueKind = "missing_field"
	// IssueDuplicateKey marks records sharing a natural key but differing in
	// some fields; the first-seen value is kept.
	IssueDuplicateKey IssueKind = "duplicate_key"
	// IssueConflictingMobile marks a customer whose mobile number collides
	// with an earlier customer under a different customer_id.
	IssueConflictingMobile IssueKind = "conflicting_mobile"
	// IssueOrphanOrder marks an order whose mobile number matches no customer.
	IssueOrphanOrder IssueKind = "orphan_order"
	// IssueBadAmount marks an order with an unparseable total_amount.
	IssueBadAmount IssueKind = "bad_amount"
	// IssueBadTimestamp marks an order with an unparseable order_date_time.
	IssueBadTimestamp IssueKind = "bad_timestamp"
	// IssueBadSKUCount marks a line item with a missing or non-positive count.
	IssueBadSKUCount IssueKind = "bad_sku_count"
)

// Issue is one recorded validation finding, identified by the natural key of
// the offending record.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Key    string    `json:"key"`
	Detail string    `json:"detail,omitempty"`
}

// Report is the ValidationReport of one Normalizer run. It is a plain value
// returned alongside the snapshot, so normalization stays reentrant.
type Report struct {
	Issues []Issue `json:"issues"`

	CustomersRead     int `json:"customers_read"`
	CustomersAccepted int `json:"customers_accepted"`
	OrdersRead        int `json:"orders_read"`
	OrdersAccepted    int `json:"orders_accepted"`
	ItemsRead         int `json:"items_read"`
	ItemsAccepted     int `json:"items_accepted"`
}

func (r *Report) Add(kind IssueKind, key, detail string) {
	r.Issues = append(r.Issues, Issue{Kind: kind, Key: key, Detail: detail})
}

// Count returns the number of issues of the given kind.
func (r *Report) Count(kind IssueKind) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}

// Keys returns the identifying keys recorded for the given kind.
func (r *Report) Keys(kind IssueKind) []string {
	var keys []string
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			keys = append(keys, issue.Key)
		}
	}
	return keys
}

func (r *Report) CustomersRejected() int {
	return r.CustomersRead - r.CustomersAccepted
}

func (r *Report) OrdersRejected() int {
	return r.OrdersRead - r.OrdersAccepted
}
