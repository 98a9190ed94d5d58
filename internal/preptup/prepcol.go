package preptup

import "github.com/kgearhart/vh/internal/typevar"

// PrepCol transforms the Values a column's SearchPaths resolved into
// the single Value stored in the output tuple's target column
// (PrepColFuncTableData.populate_slot). datas is supplied in the same
// order the column's SearchPaths were added.
type PrepCol interface {
	PopulateSlot(target *typevar.Slot, datas []*typevar.Slot) error
}
