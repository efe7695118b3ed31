package relational

import "time"

// Row types are private to this backend: the canonical snapshot stays
// storage-neutral and the relational model is free to carry derived columns.
// month_key and order_ts_unix are written at load time so the aggregation
// queries stay portable across sqlite, mysql and postgres without
// dialect-specific date functions.

type customerRow struct {
	CustomerID   string `gorm:"column:customer_id;primaryKey"`
	CustomerName string `gorm:"column:customer_name;not null"`
	MobileNumber string `gorm:"column:mobile_number;not null;uniqueIndex:uidx_customers_mobile"`
	Region       string `gorm:"column:region;not null;index"`
}

func (customerRow) TableName() string { return "customers" }

type orderRow struct {
	OrderID       string    `gorm:"column:order_id;primaryKey"`
	MobileNumber  string    `gorm:"column:mobile_number;not null;index"`
	OrderDateTime time.Time `gorm:"column:order_date_time;not null"`
	OrderTSUnix   int64     `gorm:"column:order_ts_unix;not null;index"`
	MonthKey      string    `gorm:"column:month_key;not null;index"`
	TotalAmount   float64   `gorm:"column:total_amount;not null"`
}

func (orderRow) TableName() string { return "orders" }

type orderItemRow struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID  string `gorm:"column:order_id;not null;index:idx_order_items_order"`
	SKUID    string `gorm:"column:sku_id;not null;index:idx_order_items_order"`
	SKUCount int    `gorm:"column:sku_count;not null"`
}

func (orderItemRow) TableName() string { return "order_items" }
