package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/dataflows"
	"github.com/dyike/StockLens/internal/models"
)

// Options tunes a Pipeline.
type Options struct {
	Policy SymbolPolicy
	Debug  bool
	// NewID names a request. Defaults to a random UUID.
	NewID func() string
	Now   func() time.Time
}

// Pipeline turns ticker strings into rendered reports:
// normalize, fetch, derive, then materialize.
type Pipeline struct {
	source   dataflows.MarketDataSource
	renderer Renderer
	sink     ArtifactSink
	opts     Options
}

func NewPipeline(source dataflows.MarketDataSource, renderer Renderer, sink ArtifactSink, opts Options) *Pipeline {
	if opts.Policy == "" {
		opts.Policy = PolicyPassthrough
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{source: source, renderer: renderer, sink: sink, opts: opts}
}

// NewPipelineFromConfig wires the configured market data source, the gonum
// renderer and the configured artifact channel.
func NewPipelineFromConfig(cfg *config.Config) (*Pipeline, error) {
	policy, err := ParsePolicy(cfg.SymbolPolicy)
	if err != nil {
		return nil, err
	}
	sink, err := NewSink(cfg)
	if err != nil {
		return nil, err
	}
	return NewPipeline(dataflows.NewMarketDataSource(cfg), NewPlotRenderer(), sink, Options{
		Policy: policy,
		Debug:  cfg.Debug,
	}), nil
}

func (p *Pipeline) debugf(format string, args ...any) {
	if p.opts.Debug {
		log.Printf("[Pipeline] "+format, args...)
	}
}

// download calls the source and turns a panic into an error, since a panic
// on a fetch goroutine cannot be recovered by the caller.
func (p *Pipeline) download(ctx context.Context, symbol string) (s *models.ReturnSeries, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("fetch %s: internal error: %v", symbol, r)
		}
	}()
	return p.source.DownloadReturns(ctx, symbol)
}

// fetchPair downloads both series concurrently. The first failure cancels
// the other fetch and is returned.
func (p *Pipeline) fetchPair(ctx context.Context, symbol, benchmark string) (*models.ReturnSeries, *models.ReturnSeries, error) {
	var primary, bench *models.ReturnSeries
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.download(gctx, symbol)
		primary = s
		return err
	})
	g.Go(func() error {
		s, err := p.download(gctx, benchmark)
		bench = s
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return primary, bench, nil
}

// Compare builds the comparison report of symbol against benchmark over the
// dates both share. On failure nothing is left behind in the sink.
func (p *Pipeline) Compare(ctx context.Context, symbol, benchmark string) (report *models.ComparisonReport, err error) {
	symbol = Normalize(p.opts.Policy, symbol)
	benchmark = Normalize(p.opts.Policy, benchmark)

	started := p.opts.Now()
	primary, bench, err := p.fetchPair(ctx, symbol, benchmark)
	if err != nil {
		return nil, err
	}
	p.debugf("fetched %s (%d) and %s (%d) in %s", symbol, primary.Len(), benchmark, bench.Len(), time.Since(started))

	pair, err := Align(primary, bench)
	if err != nil {
		return nil, err
	}

	metrics := CompareMetrics(pair)
	yearly := CompareYearly(pair)
	drawdowns := DrawdownPeriods(pair.Dates, pair.Primary, topDrawdowns)

	snapshotPNG, err := p.renderer.Snapshot(symbol+" Performance", []NamedSeries{
		{Name: symbol, Dates: pair.Dates, Returns: pair.Primary},
		{Name: benchmark, Dates: pair.Dates, Returns: pair.Bench},
	})
	if err != nil {
		return nil, fmt.Errorf("render snapshot for %s: %w", symbol, err)
	}
	yearlyPNG, err := p.renderer.YearlyReturns(symbol+" vs "+benchmark+" EOY Returns", symbol, benchmark, yearly)
	if err != nil {
		return nil, fmt.Errorf("render yearly returns for %s: %w", symbol, err)
	}

	html, err := RenderHTML(HTMLData{
		Title:         symbol,
		Benchmark:     benchmark,
		Start:         pair.Dates[0],
		End:           pair.Dates[pair.Len()-1],
		Generated:     p.opts.Now(),
		Metrics:       metrics,
		Yearly:        yearly,
		Drawdowns:     drawdowns,
		SnapshotImage: snapshotPNG,
		YearlyImage:   yearlyPNG,
	})
	if err != nil {
		return nil, fmt.Errorf("report for %s: %w", symbol, err)
	}

	req, err := p.sink.Begin(p.opts.NewID())
	if err != nil {
		return nil, fmt.Errorf("report for %s: %w", symbol, err)
	}
	defer func() {
		if err != nil {
			if derr := p.sink.Discard(req); derr != nil {
				log.Printf("[Pipeline] failed to discard request %s: %v", req.ID, derr)
			}
		}
	}()

	report = &models.ComparisonReport{
		RequestID: req.ID,
		Symbol:    symbol,
		Benchmark: benchmark,
		Start:     pair.Dates[0],
		End:       pair.Dates[pair.Len()-1],
		HTML:      string(html),
		Metrics:   metrics,
		Yearly:    yearly,
	}
	if report.SnapshotImage, err = p.sink.Put(req, SnapshotFile, "image/png", snapshotPNG); err != nil {
		return nil, err
	}
	if report.YearlyImage, err = p.sink.Put(req, YearlyFile, "image/png", yearlyPNG); err != nil {
		return nil, err
	}
	// The HTML goes last so that a visible report implies its images exist.
	htmlArtifact, err := p.sink.Put(req, ReportFile, "text/html", html)
	if err != nil {
		return nil, err
	}
	report.ReportPath = htmlArtifact.Path

	p.debugf("request %s: %s vs %s over %d days", req.ID, symbol, benchmark, pair.Len())
	return report, nil
}

// Snapshot builds the single-symbol performance snapshot.
func (p *Pipeline) Snapshot(ctx context.Context, symbol string) (report *models.SnapshotReport, err error) {
	symbol = Normalize(p.opts.Policy, symbol)

	series, err := p.download(ctx, symbol)
	if err != nil {
		return nil, err
	}
	dates, returns := series.Dates(), series.Values()

	png, err := p.renderer.Snapshot(symbol+" Performance", []NamedSeries{{Name: symbol, Dates: dates, Returns: returns}})
	if err != nil {
		return nil, fmt.Errorf("render snapshot for %s: %w", symbol, err)
	}

	req, err := p.sink.Begin(p.opts.NewID())
	if err != nil {
		return nil, fmt.Errorf("snapshot for %s: %w", symbol, err)
	}
	defer func() {
		if err != nil {
			if derr := p.sink.Discard(req); derr != nil {
				log.Printf("[Pipeline] failed to discard request %s: %v", req.ID, derr)
			}
		}
	}()

	image, err := p.sink.Put(req, SnapshotFile, "image/png", png)
	if err != nil {
		return nil, err
	}

	start, end := series.Range()
	return &models.SnapshotReport{
		RequestID: req.ID,
		Symbol:    symbol,
		Start:     start,
		End:       end,
		Image:     image,
		Metrics:   SingleMetrics(dates, returns),
	}, nil
}
