package lending

// Title represents a catalog entry. The lending engine treats titles as
// read-only reference data: copies belong to a title, and callers join copy
// to title at display time. Code is the identifying catalog code and must
// be unique.
type Title struct {
	ID     TitleIDInt
	Code   string
	Name   string
	Author string
}
