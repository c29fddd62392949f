// Package referencing defines the contract between the grid machinery and the
// geodetic backend. The resampling engine never depends on a specific
// projection library: coordinate operations are obtained from an injected
// OperationFinder.
package referencing

import (
	"fmt"

	"github.com/geoforge/gridwarp/internal/transform"
)

// AxisDirection identifies the direction of increasing coordinate values
// along one axis of a coordinate system.
type AxisDirection int

const (
	East AxisDirection = iota
	West
	North
	South
	Up
	Down
	Future
	Past
)

var axisNames = [...]string{"East", "West", "North", "South", "Up", "Down", "Future", "Past"}

func (d AxisDirection) String() string {
	if d < 0 || int(d) >= len(axisNames) {
		return fmt.Sprintf("AxisDirection(%d)", int(d))
	}
	return axisNames[d]
}

// Opposite returns the direction of decreasing coordinate values.
func (d AxisDirection) Opposite() AxisDirection {
	if d%2 == 0 {
		return d + 1
	}
	return d - 1
}

// CRS describes a coordinate reference system. Instances are opaque to the
// grid machinery: only the dimension, the axis directions and equality are
// consumed. The geodetic definition lives in the backend.
type CRS interface {
	Name() string
	Datum() string
	Dimension() int
	AxisDirections() []AxisDirection
	Equals(other CRS) bool
}

type crs struct {
	name  string
	datum string
	dirs  []AxisDirection
}

// New creates a CRS with the given axis directions. Two CRS are considered
// equal when they have the same datum and the same axis directions in the
// same order.
func New(name, datum string, dirs ...AxisDirection) CRS {
	return &crs{name: name, datum: datum, dirs: append([]AxisDirection(nil), dirs...)}
}

func (c *crs) Name() string   { return c.name }
func (c *crs) Datum() string  { return c.datum }
func (c *crs) Dimension() int { return len(c.dirs) }

func (c *crs) AxisDirections() []AxisDirection {
	return append([]AxisDirection(nil), c.dirs...)
}

func (c *crs) Equals(other CRS) bool {
	if other == nil || c.datum != other.Datum() || len(c.dirs) != other.Dimension() {
		return false
	}
	for i, d := range other.AxisDirections() {
		if c.dirs[i] != d {
			return false
		}
	}
	return true
}

// OperationFinder locates the coordinate operation from one reference system
// to another. Implementations are strategy objects injected into the
// resampling engine.
type OperationFinder interface {
	FindOperation(source, target CRS) (transform.Transform, error)
}

// ErrOperationNotFound reports that no coordinate operation from Source to
// Target is known to the finder.
type ErrOperationNotFound struct {
	Source, Target CRS
}

func (e *ErrOperationNotFound) Error() string {
	return fmt.Sprintf("no operation found from %q to %q", e.Source.Name(), e.Target.Name())
}

// AxisOrderFinder resolves operations between reference systems sharing the
// same datum but differing in axis order or orientation, which it expresses
// as a signed permutation. It is the default finder of the resampling engine.
type AxisOrderFinder struct{}

func (AxisOrderFinder) FindOperation(source, target CRS) (transform.Transform, error) {
	if source == nil || target == nil {
		return nil, fmt.Errorf("missing reference system")
	}
	if source.Equals(target) {
		return transform.Identity(source.Dimension()), nil
	}
	if source.Datum() != target.Datum() || source.Dimension() != target.Dimension() {
		return nil, &ErrOperationNotFound{Source: source, Target: target}
	}
	srcDirs := source.AxisDirections()
	tgtDirs := target.AxisDirections()
	n := len(srcDirs)
	used := make([]bool, n)
	mat := transform.NewMatrix(n+1, n+1)
	mat.Set(n, n, 1)
	for i, want := range tgtDirs {
		found := false
		for j, have := range srcDirs {
			if used[j] {
				continue
			}
			if have == want {
				mat.Set(i, j, 1)
			} else if have == want.Opposite() {
				mat.Set(i, j, -1)
			} else {
				continue
			}
			used[j] = true
			found = true
			break
		}
		if !found {
			return nil, &ErrOperationNotFound{Source: source, Target: target}
		}
	}
	return transform.MustLinear(mat), nil
}

// OperationMap associates (source name, target name) pairs with transforms.
type OperationMap map[[2]string]transform.Transform

// Registry is a process-wide read-only operation table, initialized once and
// never mutated thereafter. Lookups fall back to the given finder.
type Registry struct {
	ops      OperationMap
	fallback OperationFinder
}

// NewRegistry copies the given operations. A nil fallback defaults to
// AxisOrderFinder.
func NewRegistry(ops OperationMap, fallback OperationFinder) *Registry {
	if fallback == nil {
		fallback = AxisOrderFinder{}
	}
	copied := make(OperationMap, len(ops))
	for k, v := range ops {
		copied[k] = v
	}
	return &Registry{ops: copied, fallback: fallback}
}

func (r *Registry) FindOperation(source, target CRS) (transform.Transform, error) {
	if source != nil && target != nil {
		if op, ok := r.ops[[2]string{source.Name(), target.Name()}]; ok {
			return op, nil
		}
	}
	return r.fallback.FindOperation(source, target)
}
