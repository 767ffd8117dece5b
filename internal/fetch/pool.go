package fetch

import (
	"context"
	"sync"
	"time"

	"aidaily/internal/core"
	"aidaily/internal/logger"
	"aidaily/internal/sources"
)

// fetchWorkers bounds the number of sources fetched in parallel.
const fetchWorkers = 8

// fetchAll runs fn over all sources with bounded concurrency, applying the
// client's politeness delay after each fetch. Results keep registry order.
func fetchAll(ctx context.Context, srcs []sources.Source, delay time.Duration, fn func(context.Context, sources.Source) ([]core.RawItem, error)) ([]core.RawItem, []core.SourceStatus) {
	batches := make([][]core.RawItem, len(srcs))
	statuses := make([]core.SourceStatus, len(srcs))

	sem := make(chan struct{}, fetchWorkers)
	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			batch, err := fn(ctx, src)
			status := core.SourceStatus{SiteID: src.Key, SiteName: src.Name, OK: err == nil, ItemCount: len(batch)}
			if err != nil {
				status.Error = err.Error()
				logger.Warn("source fetch failed", "source", src.Key, "error", err.Error())
			}
			batches[i] = batch
			statuses[i] = status
			time.Sleep(delay)
		}(i, src)
	}
	wg.Wait()

	var items []core.RawItem
	for _, batch := range batches {
		items = append(items, batch...)
	}
	return items, statuses
}
