// Package occgrid defines the 2D probabilistic occupancy grid the ray
// simulator marches across. Grid construction and the Bayesian update
// from observations are out of scope (spec.md §1); this package only
// provides the log-odds cell encoding and world<->cell coordinate
// mapping the simulator needs.
package occgrid

import (
	"math"
	"sync"
)

// logOddsScale fixes the probability<->log-odds transform's sensitivity.
// MRPT's own grid picks a similar fixed scale so that p=0.5 maps to l=0 and
// cells within one unit of it ("|l| <= 1") read as genuinely unknown rather
// than merely uncertain.
const logOddsScale = 16.0

// P2L converts a probability in (0,1) that a cell is free to its log-odds
// cell encoding. Grid cells store log-odds of free-ness, not occupancy: a
// cell the ray simulator should march through carries a high value, one it
// should stop at carries a low one.
func P2L(p float64) int16 {
	l := math.Log(p/(1-p)) * logOddsScale
	switch {
	case l > math.MaxInt16:
		return math.MaxInt16
	case l < math.MinInt16:
		return math.MinInt16
	default:
		return int16(math.Round(l))
	}
}

// L2P converts a log-odds cell encoding back to a probability of free-ness.
func L2P(l int16) float64 {
	return 1 / (1 + math.Exp(-float64(l)/logOddsScale))
}

// IsUnknown reports whether a cell's log-odds value is close enough to
// zero (p=0.5) to be considered unknown, per spec.md §3.
func IsUnknown(l int16) bool {
	return l <= 1 && l >= -1
}

// Grid is a rectangular log-odds occupancy grid. Mutation is guarded by a
// mutex in the style of the toolkit's SquareArea, even though the single-
// driver model (spec.md §5) means the ray simulator itself never needs it.
type Grid struct {
	mu sync.RWMutex

	sizeX, sizeY int
	resolution   float64
	minX, minY   float64
	cells        []int16
}

// NewGrid returns a sizeX x sizeY grid, each cell unknown (log-odds 0),
// covering world coordinates [minX, minX+sizeX*resolution) x
// [minY, minY+sizeY*resolution).
func NewGrid(sizeX, sizeY int, resolution, minX, minY float64) *Grid {
	return &Grid{
		sizeX:      sizeX,
		sizeY:      sizeY,
		resolution: resolution,
		minX:       minX,
		minY:       minY,
		cells:      make([]int16, sizeX*sizeY),
	}
}

// Size returns the grid's cell dimensions.
func (g *Grid) Size() (sizeX, sizeY int) {
	return g.sizeX, g.sizeY
}

// Resolution returns the grid's metres-per-cell-edge.
func (g *Grid) Resolution() float64 {
	return g.resolution
}

// X2Idx maps a world x coordinate to a cell column index. Out-of-range
// inputs yield an index that fails InBounds (spec.md §3): inputs below minX
// map to a negative index, and values past the grid map past sizeX.
func (g *Grid) X2Idx(x float64) int {
	return int(math.Floor((x - g.minX) / g.resolution))
}

// Y2Idx is the row analogue of X2Idx.
func (g *Grid) Y2Idx(y float64) int {
	return int(math.Floor((y - g.minY) / g.resolution))
}

// InBounds reports whether the given cell indices lie within the grid.
func (g *Grid) InBounds(ix, iy int) bool {
	return ix >= 0 && iy >= 0 && ix < g.sizeX && iy < g.sizeY
}

// At returns the log-odds value of the cell at (ix, iy). Callers must
// check InBounds first; At does not itself bounds-check; MustReadCell exists
// for safe random access outside the simulator's hot loop.
func (g *Grid) At(ix, iy int) int16 {
	return g.cells[ix+iy*g.sizeX]
}

// MustReadCell safely reads a cell, returning (0, false) if out of bounds.
func (g *Grid) MustReadCell(ix, iy int) (int16, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.InBounds(ix, iy) {
		return 0, false
	}
	return g.At(ix, iy), true
}

// Set writes a log-odds value to the cell at (ix, iy).
func (g *Grid) Set(ix, iy int, logOdds int16) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cells[ix+iy*g.sizeX] = logOdds
}

// SetProb writes a cell's log-odds encoding of the given free-ness probability.
func (g *Grid) SetProb(ix, iy int, p float64) {
	g.Set(ix, iy, P2L(p))
}

// Fill sets every cell in the grid to the given log-odds value, e.g. to
// build a fully-free or fully-occupied grid for testing the ray simulator
// laws of spec.md §8.
func (g *Grid) Fill(logOdds int16) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.cells {
		g.cells[i] = logOdds
	}
}
