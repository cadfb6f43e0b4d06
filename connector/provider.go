package connector

import (
	"context"

	"github.com/Konsultn-Engineering/tagsql/dialect"
)

// Provider opens pools for one driver. Connect must verify the pool before
// returning so that bad credentials surface at startup.
type Provider interface {
	Connect(ctx context.Context, config Config) (Connection, error)
	Dialect() dialect.Dialect
}
