package schema

import (
	"context"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/logger"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/metrics"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

// Source returns a snapshot of the target database.
type Source interface {
	Snapshot(ctx context.Context) (models.SchemaSnapshot, error)
}

// Provider serves snapshots from the cache when one is configured and falls
// back to live introspection. Cache errors never fail a request.
type Provider struct {
	builder *Builder
	cache   *Cache
	logger  logger.Logger
}

// NewProvider accepts a nil cache.
func NewProvider(builder *Builder, cache *Cache, log logger.Logger) *Provider {
	return &Provider{builder: builder, cache: cache, logger: log}
}

func (p *Provider) Snapshot(ctx context.Context) (models.SchemaSnapshot, error) {
	if p.cache != nil {
		snapshot, ok, err := p.cache.Get(ctx)
		switch {
		case err != nil:
			p.logger.Warn("schema cache read failed", map[string]interface{}{"error": err})
		case ok:
			metrics.SchemaSnapshots.WithLabelValues("cache").Inc()
			return snapshot, nil
		}
	}

	snapshot, err := p.builder.Build(ctx)
	if err != nil {
		metrics.SchemaSnapshots.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.SchemaSnapshots.WithLabelValues("database").Inc()

	p.logger.Info("schema snapshot built", map[string]interface{}{
		"schemas": len(snapshot),
		"tables":  snapshot.TableCount(),
		"columns": snapshot.ColumnCount(),
	})

	if p.cache != nil {
		if err := p.cache.Set(ctx, snapshot); err != nil {
			p.logger.Warn("schema cache write failed", map[string]interface{}{"error": err})
		}
	}
	return snapshot, nil
}
