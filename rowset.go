package simidx

// Row is a single record projected from a row set.
type Row map[string]any

// RowSet is the tabular collaborator that owns the rows a registry's
// indexes point back into. It is external to this package: any columnar
// dataset with stable 0-based row ids can implement it.
type RowSet interface {
	// NumRows returns the number of rows.
	NumRows() int

	// Column returns the values of a named column in row order.
	Column(name string) ([]any, error)

	// Rows returns the records for the given row ids in input order.
	// Ids outside [0, NumRows), including the -1 no-match sentinel,
	// must project to missing, never panic or truncate.
	Rows(ids []int64, missing Row) []Row
}
