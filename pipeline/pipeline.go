// Package pipeline runs one update cycle: fetch every station, build the
// document, render the panel and publish the outputs.
package pipeline

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/riverlevel/riverlevel/config"
	"github.com/riverlevel/riverlevel/publish"
	"github.com/riverlevel/riverlevel/render"
	"github.com/riverlevel/riverlevel/river"
)

// Result is the outcome of a cycle.
type Result struct {
	Document *river.Document
	Frame    *render.Frame
}

// Options configures Run.
type Options struct {
	Logger *zap.Logger
	// Client used to fetch the gauge CSV files (default: http.DefaultClient).
	Client *http.Client
	// Now returns the document time (default: time.Now).
	Now func() time.Time
}

// Stations converts station configurations to river stations.
func Stations(cfgs []config.StationConfiguration) []river.Station {
	stations := make([]river.Station, len(cfgs))
	for i, c := range cfgs {
		stations[i] = river.Station{
			Name:                 c.Name,
			URL:                  c.URL,
			TopOfNormalRangeM:    c.TopOfNormalRangeM,
			HighestEverRecordedM: c.HighestEverRecordedM,
			YAxisBottomM:         c.YAxisBottomM,
			YAxisTopM:            c.YAxisTopM,
		}
	}
	return stations
}

// Run executes one cycle with cfg and writes the outputs to sink.
func Run(ctx context.Context, cfg config.Configuration, sink publish.Sink, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pipeline")
	start := time.Now()

	if n := len(cfg.Stations); n > render.MaxStations {
		logger.Warn("only the first stations are drawn",
			zap.Int("stations", n),
			zap.Int("drawn", render.MaxStations))
	}

	fetcher := river.NewFetcher(river.FetcherOptions{
		Client:          opts.Client,
		Timeout:         cfg.Fetch.Timeout,
		MaxRetries:      cfg.Fetch.MaxRetries,
		InitialInterval: cfg.Fetch.InitialInterval,
		Logger:          logger,
	})
	builder, err := river.NewBuilder(river.BuilderOptions{
		Source:    fetcher,
		Threshold: cfg.Threshold,
		Now:       opts.Now,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	doc, err := builder.Build(ctx, Stations(cfg.Stations))
	if err != nil {
		logger.Error("build failed", zap.Error(err))
		return nil, err
	}

	frame := render.Render(doc, render.Options{TwoColor: cfg.Output.TwoColor})
	if err := publish.Publish(ctx, sink, doc, frame, logger); err != nil {
		logger.Error("publish failed", zap.Error(err))
		return nil, err
	}

	logger.Info("cycle complete",
		zap.Time("utc_time", doc.UTCTime),
		zap.Int("stations", len(doc.Stations)),
		zap.Duration("took", time.Since(start)))
	return &Result{Document: doc, Frame: frame}, nil
}
