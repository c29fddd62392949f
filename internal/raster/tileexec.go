package raster

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geoforge/gridwarp/internal/gridwarp"
	"github.com/geoforge/gridwarp/internal/log"
	"github.com/geoforge/gridwarp/internal/utils"
)

// ExecutionMode selects how tile units are scheduled.
type ExecutionMode int

const (
	// Sequential processes tiles one by one on the calling goroutine.
	Sequential ExecutionMode = iota
	// Parallel spreads tiles over a worker pool.
	Parallel
)

func (m ExecutionMode) String() string {
	if m == Parallel {
		return "parallel"
	}
	return "sequential"
}

// ErrorAction selects what happens when a tile unit fails.
type ErrorAction int

const (
	// Throw lets the remaining units finish, then fails the whole call
	// with an error aggregating the causes.
	Throw ErrorAction = iota
	// Log drops the failing units and emits a single consolidated log
	// record covering all of them.
	Log
)

func (a ErrorAction) String() string {
	if a == Log {
		return "log"
	}
	return "throw"
}

// TileExecutor runs a function over every tile of an image. Units are
// independent: the executor holds no lock while a unit reads source tiles,
// and results must not depend on completion order.
type TileExecutor struct {
	Mode        ExecutionMode
	ErrorAction ErrorAction
	// MaxWorkers bounds the pool in Parallel mode. Zero means GOMAXPROCS.
	MaxWorkers int
}

// tileUnit identifies one unit of work in the executor run.
type tileUnit struct {
	index  int
	tx, ty int
}

// Run invokes fn for every tile of img intersecting its bounds. The unit
// index passed to fn is stable for a given image (row-major tile order),
// so callers can store per-unit partial results without synchronization.
// With ErrorAction Log, failed units are skipped and reported once; the
// returned error is nil.
func (e *TileExecutor) Run(ctx context.Context, img Image, fn func(ctx context.Context, unit int, tile *Raster) error) error {
	start := time.Now()
	defer func() { tileBatchDuration.Observe(time.Since(start).Seconds()) }()

	units := tileUnits(img)
	if e.Mode == Parallel {
		return e.runParallel(ctx, img, units, fn)
	}
	var errs []error
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := e.runUnit(ctx, img, u, fn)
		observeTile(err)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return e.report(ctx, errs, len(units))
}

func (e *TileExecutor) runParallel(ctx context.Context, img Image, units []tileUnit, fn func(ctx context.Context, unit int, tile *Raster) error) error {
	workers := e.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	// Failing units must not cancel the in-flight ones, so unit errors are
	// collected under a lock instead of propagated through the group.
	var mu sync.Mutex
	var errs []error
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, u := range units {
		u := u
		g.Go(func() error {
			err := e.runUnit(gctx, img, u, fn)
			observeTile(err)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return e.report(ctx, errs, len(units))
}

func (e *TileExecutor) runUnit(ctx context.Context, img Image, u tileUnit, fn func(ctx context.Context, unit int, tile *Raster) error) error {
	tile, err := img.ReadTile(u.tx, u.ty)
	if err != nil {
		return gridwarp.NewTransformFailure("tile (%d, %d): %v", u.tx, u.ty, err)
	}
	return fn(ctx, u.index, tile)
}

// report applies the error policy to the collected unit errors.
func (e *TileExecutor) report(ctx context.Context, errs []error, total int) error {
	if len(errs) == 0 {
		return nil
	}
	if e.ErrorAction == Log {
		// One record for the whole run, whatever the number of failures.
		log.Logger(ctx).Warn("tile units failed, their samples are excluded",
			zap.Int("failed", len(errs)),
			zap.Int("total", total),
			zap.Error(errs[0]),
		)
		return nil
	}
	return utils.MergeErrors(true, errs[0], errs[1:]...)
}

func tileUnits(img Image) []tileUnit {
	tx0, ty0, tx1, ty1 := img.Tiling().TileRange(img.Bounds())
	units := make([]tileUnit, 0, (tx1-tx0)*(ty1-ty0))
	for ty := ty0; ty < ty1; ty++ {
		for tx := tx0; tx < tx1; tx++ {
			units = append(units, tileUnit{index: len(units), tx: tx, ty: ty})
		}
	}
	return units
}
