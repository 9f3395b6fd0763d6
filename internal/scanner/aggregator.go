package scanner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Aggregator fetches a main document, discovers its iframes and combines
// everything into one text blob for analysis.
type Aggregator struct {
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(fetcher *Fetcher, logger *zap.Logger) *Aggregator {
	return &Aggregator{fetcher: fetcher, logger: logger}
}

// Aggregate fetches mainURL, then fetches every discovered iframe source
// concurrently. A main-document failure is fatal; individual iframe
// failures are recorded and never propagated. CombinedText is the main
// body followed by each successful iframe body in discovery order, each
// preceded by a marker comment naming its index and source.
func (a *Aggregator) Aggregate(ctx context.Context, mainURL string) (*AggregatedDocument, error) {
	mainBody, err := a.fetcher.Fetch(ctx, mainURL)
	if err != nil {
		return nil, err
	}

	sources := DiscoverIframes(mainBody, mainURL, a.logger)

	// Fan out iframe fetches; the results slice is indexed by discovery
	// order so assembly never depends on completion order.
	results := make([]FetchResult, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			body, err := a.fetcher.Fetch(ctx, src)
			if err != nil {
				a.logger.Warn("Iframe fetch failed", zap.String("src", src), zap.Error(err))
				results[i] = FetchResult{SourceURL: src, Succeeded: false, Error: err.Error()}
				return
			}
			results[i] = FetchResult{SourceURL: src, Body: body, Succeeded: true}
		}(i, src)
	}
	wg.Wait()

	var sb strings.Builder
	sb.WriteString(mainBody)

	stats := AggregationStats{Total: len(sources)}
	for i, res := range results {
		if !res.Succeeded {
			stats.Failed++
			continue
		}
		stats.Successful++
		sb.WriteString(fmt.Sprintf("\n\n<!-- ===== iframe %d: %s ===== -->\n", i+1, res.SourceURL))
		sb.WriteString(res.Body)
	}

	a.logger.Info("Aggregated document",
		zap.String("url", mainURL),
		zap.Int("iframes_total", stats.Total),
		zap.Int("iframes_successful", stats.Successful),
		zap.Int("iframes_failed", stats.Failed),
	)

	return &AggregatedDocument{
		MainURL:       mainURL,
		MainBody:      mainBody,
		IframeResults: results,
		CombinedText:  sb.String(),
		Stats:         stats,
	}, nil
}
