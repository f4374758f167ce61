// Package ingest runs ingestion passes over the configured sources and
// schedules them on a recurring timer.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"newsroom/config"
	"newsroom/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

// Registry provides the source list for a pass
type Registry interface {
	Sources() []models.Source
}

// Fetcher retrieves and normalizes the items of one source
type Fetcher interface {
	Fetch(ctx context.Context, source models.Source) ([]models.RawItem, error)
}

// Store persists items, ignoring links it already holds
type Store interface {
	UpsertMany(ctx context.Context, items []models.RawItem) (int, error)
}

// Collector runs one ingestion pass at a time over the enabled sources
type Collector struct {
	registry Registry
	fetcher  Fetcher
	store    Store
	workers  int
}

func NewCollector(registry Registry, fetcher Fetcher, store Store, workers int) *Collector {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Collector{
		registry: registry,
		fetcher:  fetcher,
		store:    store,
		workers:  workers,
	}
}

// CollectOnce fetches every enabled source and stores its items as soon as
// the fetch succeeds. A failing source is logged and recorded in the result
// without affecting the others. A storage error stops the pass and is
// returned together with what was collected up to that point.
func (c *Collector) CollectOnce(ctx context.Context) (models.PassResult, error) {
	sources := c.registry.Sources()
	enabled := config.Enabled(sources)

	result := models.PassResult{
		Id:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Sources:   len(sources),
		Enabled:   len(enabled),
	}

	logger := log.WithFields(log.Fields{
		"pass":    result.Id,
		"sources": len(sources),
		"enabled": len(enabled),
	})
	logger.Info("Starting ingestion pass")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, source := range enabled {
		source := source
		g.Go(func() error {
			items, err := c.fetcher.Fetch(gctx, source)
			if err != nil {
				// A sibling aborted the pass, the source itself is not at fault
				if gctx.Err() != nil && ctx.Err() == nil {
					logger.WithField("source", source.Name).WithError(err).Debug("Fetch cancelled by aborted pass")
					return nil
				}
				logger.WithFields(log.Fields{
					"source": source.Name,
					"url":    source.Url,
				}).WithError(err).Warn("Failed to fetch source")
				sourceFailuresTotal.WithLabelValues(source.Name).Inc()

				mu.Lock()
				result.Failures = append(result.Failures, models.SourceFailure{
					Source: source.Name,
					Url:    source.Url,
					Error:  err.Error(),
				})
				mu.Unlock()
				return nil
			}

			inserted, err := c.store.UpsertMany(gctx, items)
			if err != nil {
				return fmt.Errorf("store items from %s: %w", source.Name, err)
			}
			insertedTotal.Add(float64(inserted))

			logger.WithFields(log.Fields{
				"source":   source.Name,
				"items":    len(items),
				"inserted": inserted,
			}).Debug("Stored source items")

			mu.Lock()
			result.Succeeded++
			result.Fetched += len(items)
			result.Inserted += inserted
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	result.FinishedAt = time.Now().UTC()
	duration := result.FinishedAt.Sub(result.StartedAt)
	passDuration.Observe(duration.Seconds())

	logger = logger.WithFields(log.Fields{
		"succeeded": result.Succeeded,
		"failed":    result.Failed(),
		"fetched":   result.Fetched,
		"inserted":  result.Inserted,
		"duration":  duration.String(),
	})

	if err != nil {
		passesTotal.WithLabelValues("error").Inc()
		logger.WithError(err).Error("Ingestion pass aborted")
		return result, err
	}

	passesTotal.WithLabelValues("ok").Inc()
	lastSuccess.SetToCurrentTime()
	logger.Info("Finished ingestion pass")
	return result, nil
}
