// Package raysim implements the ray-tracing simulator that synthesises
// laser-range and sonar observations from a hypothetical sensor pose over
// an occupancy grid (spec.md §4.2). It is a pure function of the grid,
// the sensor geometry and a noise source; grid construction, Bayesian
// updates and rawlog decoding are out of scope.
package raysim

import (
	"math"

	"github.com/pkg/errors"

	"github.com/viam-labs/graphslam-core/occgrid"
	"github.com/viam-labs/graphslam-core/scan"
	"github.com/viam-labs/graphslam-core/spatialmath"
)

// Source is a seedable Gaussian noise source, injected rather than tapped
// from process-wide state, per Design Notes §9 ("inject a seedable RNG").
type Source interface {
	// Normal returns one zero-mean, unit-variance Gaussian sample.
	Normal() float64
}

// contractViolation panics the way the original's ASSERT_/ASSERTMSG_
// macros fail fast on a precondition a caller controls.
func contractViolation(msg string) {
	panic(errors.New(msg))
}

// SonarTransducer describes one sonar sensor to fan rays across.
type SonarTransducer struct {
	SensorPose   spatialmath.Pose3D
	ConeAperture float64 // radians
}

// SonarObservation carries N transducers in and their sensed distances out.
type SonarObservation struct {
	Transducers     []SonarTransducer
	MaxRange        float64
	SensedDistances []float64
}

// Params bundles the tunables spec.md §4.2 lists for a single simulation call.
type Params struct {
	RobotPose       spatialmath.Pose3D
	Threshold       float64 // occupancy threshold t in (0,1)
	RangeNoiseStd   float64
	AngleNoiseStd   float64
	Decimation      uint // >= 1
	Source          Source
}

// LaserScanSimulate populates s.Ranges/s.Valid in place by marching N rays
// across the grid from the robot+sensor pose, per spec.md §4.2.
func LaserScanSimulate(grid *occgrid.Grid, s *scan.Scan2D, p Params) {
	n := s.N()
	if n < 2 {
		contractViolation("laser scan simulation requires at least 2 rays")
	}
	if p.Decimation < 1 {
		contractViolation("decimation must be >= 1")
	}

	sensorPose := p.RobotPose.Compose(s.SensorPose).Project2D()

	if len(s.Ranges) != n {
		s.Ranges = make([]float64, n)
	}
	if len(s.Valid) != n {
		s.Valid = make([]bool, n)
	}
	for i := range s.Ranges {
		s.Ranges[i] = 0
		s.Valid[i] = false
	}

	sign := 1.0
	if s.RightToLeft {
		sign = -1.0
	}
	a0 := sensorPose.Phi + sign*0.5*s.Aperture
	deltaA := -sign * (s.Aperture / float64(n-1))

	freeThres := float32(1 - p.Threshold)
	maxRayLen := uint32(math.Round(s.MaxRange / grid.Resolution()))

	for i := 0; i < n; i += int(p.Decimation) {
		angle := a0 + float64(i)*deltaA
		rng, valid := simulateScanRay(grid, sensorPose.X, sensorPose.Y, angle,
			maxRayLen, freeThres, p.RangeNoiseStd, p.AngleNoiseStd, p.Source)
		s.Ranges[i] = rng
		s.Valid[i] = valid
	}
}

// SonarSimulate fans rays across each transducer's cone and records the
// minimum valid range per spec.md §4.2; zero when no ray in the cone hit
// anything valid.
func SonarSimulate(grid *occgrid.Grid, obs *SonarObservation, p Params) {
	freeThres := float32(1 - p.Threshold)
	maxRayLen := uint32(math.Round(obs.MaxRange / grid.Resolution()))

	obs.SensedDistances = make([]float64, len(obs.Transducers))
	for ti, transducer := range obs.Transducers {
		if transducer.ConeAperture <= 0 {
			contractViolation("sonar cone aperture must be positive")
		}
		sensorPose := p.RobotPose.Compose(transducer.SensorPose).Project2D()

		nRays := int(math.Round(1 + transducer.ConeAperture/spatialmath.DegToRad(1.0)))
		direction := sensorPose.Phi - 0.5*transducer.ConeAperture
		deltaA := transducer.ConeAperture / float64(nRays)

		var min float64
		haveValid := false
		for i := 0; i < nRays; i++ {
			rng, valid := simulateScanRay(grid, sensorPose.X, sensorPose.Y, direction,
				maxRayLen, freeThres, p.RangeNoiseStd, p.AngleNoiseStd, p.Source)
			direction += deltaA
			if valid && (!haveValid || rng < min) {
				min = rng
				haveValid = true
			}
		}
		if !haveValid {
			min = 0
		}
		obs.SensedDistances[ti] = min
	}
}

// simulateScanRay marches one ray from (x0, y0) at nominal angle alpha,
// per spec.md §4.2's numbered algorithm, returning (range, valid).
func simulateScanRay(
	grid *occgrid.Grid,
	x0, y0, alpha float64,
	maxRayLen uint32,
	freeThres float32,
	rangeNoiseStd, angleNoiseStd float64,
	source Source,
) (float64, bool) {
	a := alpha
	if angleNoiseStd > 0 {
		a += source.Normal() * angleNoiseStd
	}

	resolution := grid.Resolution()
	dx := math.Cos(a) * resolution
	dy := math.Sin(a) * resolution

	freeThresLogOdds := occgrid.P2L(float64(freeThres))

	var rayLen uint32
	firstUnknownDist := maxRayLen + 1
	rx, ry := x0, y0
	var hitLogOdds int16
	var ix, iy int
	inGrid := true

	for {
		ix, iy = grid.X2Idx(rx), grid.Y2Idx(ry)
		if !grid.InBounds(ix, iy) {
			inGrid = false
			break
		}
		hitLogOdds = grid.At(ix, iy)
		if hitLogOdds <= freeThresLogOdds {
			break
		}
		if occgrid.IsUnknown(hitLogOdds) && rayLen < firstUnknownDist {
			firstUnknownDist = rayLen
		}
		if rayLen >= maxRayLen {
			break
		}
		rx += dx
		ry += dy
		rayLen++
	}

	if !inGrid || occgrid.IsUnknown(hitLogOdds) {
		if firstUnknownDist < rayLen {
			return float64(firstUnknownDist) * resolution, false
		}
		return float64(rayLen) * resolution, false
	}

	rng := float64(rayLen) * resolution
	valid := rayLen < maxRayLen
	if rangeNoiseStd > 0 && valid {
		rng += rangeNoiseStd * source.Normal()
	}
	return rng, valid
}
