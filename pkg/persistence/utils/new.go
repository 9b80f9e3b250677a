// Package persistenceutils is the persistence utility package
package persistenceutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/strata/pkg/persistence"
	"github.com/papercomputeco/strata/pkg/persistence/nop"
	"github.com/papercomputeco/strata/pkg/persistence/postgres"
	"github.com/papercomputeco/strata/pkg/persistence/sqlite"
)

type NewSinkOpts struct {
	ProviderType string
	Target       string
}

func NewSink(ctx context.Context, o *NewSinkOpts) (persistence.Sink, error) {
	switch o.ProviderType {
	case "", "none":
		return nop.NewSink(), nil
	case "sqlite":
		return sqlite.NewSink(o.Target)
	case "postgres":
		return postgres.NewSink(ctx, o.Target)
	default:
		return nil, fmt.Errorf("unsupported persistence provider: %s", o.ProviderType)
	}
}
