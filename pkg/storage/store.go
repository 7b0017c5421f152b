package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// NewStore opens the backend selected by cfg.Driver. An empty driver disables
// persistence and returns a nil store.
func NewStore(ctx context.Context, cfg config.StoreConfig, log *logrus.Entry) (RunStore, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "badger":
		return NewBadgerStore(cfg.StateDir, log)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN, log)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", utils.ErrConfigValidation, cfg.Driver)
	}
}
