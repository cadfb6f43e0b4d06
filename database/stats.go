package database

// Stats represents database connection pool statistics.
type Stats struct {
	OpenConnections int
	InUse           int
	Idle            int
}
