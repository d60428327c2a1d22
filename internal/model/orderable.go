package model

// Orderable carries a manual sort position.  The column is `sort_order`
// because ORDER is reserved in MySQL.
type Orderable struct {
	Order int `db:"sort_order" json:"order" validate:"gte=0"`
}

// OrderableSort is the default ordering: position first, newest first
// among equals.
var OrderableSort = []string{"sort_order ASC", "created_at DESC"}
