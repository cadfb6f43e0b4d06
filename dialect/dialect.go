package dialect

// Dialect describes how a database spells the parts of a query that are not data.
type Dialect interface {
	Name() string
	QuoteIdentifier(name string) string
	// Placeholder returns the marker for the n-th bound parameter, starting at 1.
	Placeholder(n int) string
}
