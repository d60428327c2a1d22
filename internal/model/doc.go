// Package model holds the composable record mixins shared by every
// persisted entity: timestamps, UUID keys, soft deletion, publish windows,
// and manual ordering.
//
// Entities embed the mixins they need:
//
//	type FAQ struct {
//		ID int64 `db:"id"`
//		model.Timestamps
//		model.Publishable
//		model.Orderable
//		...
//	}
//
// Every mixin that affects visibility also exposes the equivalent
// squirrel predicate, so a list query and a check on a single loaded
// record always agree.
package model
