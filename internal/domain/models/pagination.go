package models

// Pagination describes one page of a filtered record listing.
//
// Fields:
//   - Count: total rows matching the filter.
//   - Page: 1-based page number requested.
//   - Limit: page size.
//   - Pages: ceil(Count / Limit).
type Pagination struct {
	Count int64
	Page  int
	Limit int
	Pages int64
}

// RecordPage is a page of records plus its pagination metadata.
type RecordPage struct {
	Records    []DailyPrice
	Pagination Pagination
}
