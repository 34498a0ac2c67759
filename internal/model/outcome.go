package model

// RowFailure describes one CSV row the store could not import. Row is
// 1-based over data rows in file order.
type RowFailure struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportOutcome is the per-row breakdown of a CSV import. A partially failed
// import is still a successful result.
type ImportOutcome struct {
	Created int          `json:"created"`
	Failed  int          `json:"failed"`
	Errors  []RowFailure `json:"errors"`
}

// Partial reports whether some rows were created and some failed.
func (o *ImportOutcome) Partial() bool {
	return o.Created > 0 && o.Failed > 0
}

// Consistent reports whether the failure count matches the failure list.
func (o *ImportOutcome) Consistent() bool {
	return o.Failed == len(o.Errors)
}
