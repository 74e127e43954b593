// Package river builds the river level document: for each gauge station it
// fetches the recent readings, reduces them to a fixed number of heights and
// attaches the reference values used to annotate the graph.
package river

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/riverlevel/riverlevel/lttb"
	"github.com/riverlevel/riverlevel/scale"
)

// ErrInsufficientData is returned when a series has fewer points than the
// requested threshold.
var ErrInsufficientData = errors.New("river: insufficient data")

// Station is a gauge and its reference values, in metres.
type Station struct {
	Name                 string
	URL                  string
	TopOfNormalRangeM    float64
	HighestEverRecordedM float64
	YAxisBottomM         float64
	YAxisTopM            float64
}

// Source returns the readings of a station.
type Source interface {
	Fetch(ctx context.Context, url string) (*Reading, error)
}

// DownsampleHeights reduces points to exactly threshold heights rounded to
// centimetres, halves to even. A series of exactly threshold points is passed through.
func DownsampleHeights(points []lttb.Point, threshold int) ([]float64, error) {
	if len(points) < threshold {
		return nil, fmt.Errorf("%w: %d points, want at least %d", ErrInsufficientData, len(points), threshold)
	}

	downsampled := points
	if len(points) != threshold {
		var err error
		if downsampled, err = lttb.Downsample(points, threshold); err != nil {
			return nil, err
		}
	}
	if len(downsampled) != threshold {
		return nil, fmt.Errorf("river: downsample returned %d points, want %d", len(downsampled), threshold)
	}

	heights := make([]float64, len(downsampled))
	for i, p := range downsampled {
		heights[i] = math.RoundToEven(p.Value*100) / 100
	}
	return heights, nil
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	Source    Source
	Threshold int
	// Now returns the document time (default: time.Now).
	Now    func() time.Time
	Logger *zap.Logger
}

// Builder assembles documents.
type Builder struct {
	source    Source
	threshold int
	now       func() time.Time
	logger    *zap.Logger
}

// NewBuilder returns a Builder.
func NewBuilder(opts BuilderOptions) (*Builder, error) {
	if opts.Source == nil {
		return nil, errors.New("river: source is required")
	}
	if opts.Threshold < 3 {
		return nil, fmt.Errorf("river: threshold %d must be at least 3", opts.Threshold)
	}
	b := &Builder{
		source:    opts.Source,
		threshold: opts.Threshold,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	b.logger = b.logger.Named("river")
	return b, nil
}

// Build fetches every station concurrently and returns the document. A
// station without a URL is reported in the document; any other failure
// aborts the build.
func (b *Builder) Build(ctx context.Context, stations []Station) (*Document, error) {
	doc := &Document{
		UTCTime:  b.now().UTC(),
		Stations: make([]StationDocument, len(stations)),
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, st := range stations {
		if st.URL == "" {
			doc.Stations[i] = newStationDocument(st)
			doc.Stations[i].Error = "missing url"
			b.logger.Warn("station has no url", zap.String("station", st.Name))
			continue
		}
		i, st := i, st
		g.Go(func() error {
			sd, err := b.station(ctx, st)
			if err != nil {
				return fmt.Errorf("river: station %q: %w", st.Name, err)
			}
			doc.Stations[i] = sd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *Builder) station(ctx context.Context, st Station) (StationDocument, error) {
	reading, err := b.source.Fetch(ctx, st.URL)
	if err != nil {
		return StationDocument{}, err
	}
	heights, err := DownsampleHeights(reading.Points, b.threshold)
	if err != nil {
		return StationDocument{}, err
	}

	sd := newStationDocument(st)
	first, last := reading.First.UTC(), reading.Last.UTC()
	sd.FirstTimestamp = &first
	sd.LastTimestamp = &last
	sd.HeightsM = heights

	b.logger.Info("station downsampled",
		zap.String("station", st.Name),
		zap.Int("points", len(reading.Points)),
		zap.Int("heights", len(heights)))
	return sd, nil
}

// newStationDocument copies the station reference values and derives the
// reference percentages against the top of the graph.
func newStationDocument(st Station) StationDocument {
	sd := StationDocument{
		Name:                 st.Name,
		URL:                  st.URL,
		TopOfNormalRangeM:    st.TopOfNormalRangeM,
		HighestEverRecordedM: st.HighestEverRecordedM,
		YAxisBottomM:         st.YAxisBottomM,
		YAxisTopM:            st.YAxisTopM,
	}
	if top, err := scale.TopOfGraph(st.TopOfNormalRangeM, st.HighestEverRecordedM); err == nil {
		sd.TopOfGraphM = top
		sd.NormalPct = scale.PercentOf(st.TopOfNormalRangeM, top)
		sd.RecordPct = scale.PercentOf(st.HighestEverRecordedM, top)
	}
	return sd
}
