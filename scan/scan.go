// Package scan defines the laser-scan observation types the edge
// registration decider ingests, and the tagged-variant Observation model
// Design Notes §9 calls for in place of runtime type inspection.
package scan

import (
	"path/filepath"
	"strings"

	"github.com/viam-labs/graphslam-core/spatialmath"
)

// Scan2D is a 2D range scan: an ordered sequence of range samples with
// per-sample validity, the total aperture swept, a sweep-direction flag,
// the max range the sensor reports, and the sensor's pose relative to
// the robot that carried it.
type Scan2D struct {
	Ranges      []float64
	Valid       []bool
	Aperture    float64
	RightToLeft bool
	MaxRange    float64
	SensorPose  spatialmath.Pose3D
}

// N returns the number of range samples in the scan.
func (s *Scan2D) N() int { return len(s.Ranges) }

// Scan3D is a 3D range scan: a structured range image, an optional
// intensity image, and external-storage path metadata for lazily loaded
// image assets (spec.md §3).
type Scan3D struct {
	RangeImage     [][]float32
	HasIntensity   bool
	IntensityImage [][]uint8

	// externalStoragePath is the on-disk path the range/intensity images
	// are backed by; empty for an in-memory scan. Load keeps it after
	// filling RangeImage/IntensityImage.
	externalStoragePath string
	loaded              bool
}

// NewLazyScan3D returns a Scan3D whose payload has not yet been loaded
// from externalPath, mirroring CObservation3DRangeScan's external-storage
// mode.
func NewLazyScan3D(externalPath string) *Scan3D {
	return &Scan3D{externalStoragePath: externalPath}
}

// Load materialises the scan's range/intensity images if they have not
// been loaded yet. A Scan3D built directly with in-memory images (no
// external path) is already loaded and this is a no-op. Loading is
// treated as a synchronous, potentially blocking call per spec.md §5; the
// concrete asset decoding is out of scope (Non-goal: no rawlog decoding).
func (s *Scan3D) Load(loader func(path string) (rangeImg [][]float32, intensityImg [][]uint8, hasIntensity bool, err error)) error {
	if s.loaded || s.externalStoragePath == "" {
		s.loaded = true
		return nil
	}
	rangeImg, intensityImg, hasIntensity, err := loader(s.externalStoragePath)
	if err != nil {
		return err
	}
	s.RangeImage = rangeImg
	s.IntensityImage = intensityImg
	s.HasIntensity = hasIntensity
	s.loaded = true
	return nil
}

// ResolveImagePath rewrites the scan's external image path through dir,
// the way the original's correct3DScanImageFname/setRawlogFname pairing
// does for sibling "<rawlog-base>_Images/" directories (SPEC_FULL.md §9).
// A no-op when dir is empty or the scan has no external path.
func (s *Scan3D) ResolveImagePath(dir string) {
	if dir == "" || s.externalStoragePath == "" {
		return
	}
	base := filepath.Base(s.externalStoragePath)
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".png"
	}
	name := strings.TrimSuffix(base, ext)
	s.externalStoragePath = filepath.Join(dir, name+ext)
}

// ExternalStoragePath returns the scan's current external image path, if any.
func (s *Scan3D) ExternalStoragePath() string { return s.externalStoragePath }

// Project3DTo2D synthesises a fake 2D range scan from a 3D one, purely
// for downstream visualisation (SPEC_FULL.md §9). It samples the middle
// row of the range image across a forward-facing aperture; consumers
// besides visuals must not depend on its geometric fidelity.
func Project3DTo2D(s3 *Scan3D, aperture, maxRange float64, sensorPose spatialmath.Pose3D) *Scan2D {
	if len(s3.RangeImage) == 0 {
		return &Scan2D{Aperture: aperture, MaxRange: maxRange, SensorPose: sensorPose}
	}
	row := s3.RangeImage[len(s3.RangeImage)/2]
	ranges := make([]float64, len(row))
	valid := make([]bool, len(row))
	for i, r := range row {
		ranges[i] = float64(r)
		valid[i] = r > 0 && float64(r) < maxRange
	}
	return &Scan2D{
		Ranges:      ranges,
		Valid:       valid,
		Aperture:    aperture,
		RightToLeft: false,
		MaxRange:    maxRange,
		SensorPose:  sensorPose,
	}
}

// Kind discriminates the variants of Observation.
type Kind int

const (
	// KindNone marks an empty observation slot.
	KindNone Kind = iota
	// KindAction is an odometry/action-only step, ignored by the decider.
	KindAction
	// KindSensoryFrame is a bag of observations from one time step.
	KindSensoryFrame
	// KindObs2D is a single 2D range scan observation.
	KindObs2D
	// KindObs3D is a single 3D range scan observation.
	KindObs3D
)

// Observation is the tagged variant Design Notes §9 calls for, replacing
// runtime type inspection on the incoming rawlog entry.
type Observation struct {
	Kind  Kind
	Obs2D *Scan2D
	Obs3D *Scan3D
	Frame *SensoryFrame
}

// SensoryFrame is an ordered bag of observations captured at one time step.
type SensoryFrame struct {
	Observations []Observation
}

// FirstObs2D returns the first 2D range scan contained in the frame, if any.
func (f *SensoryFrame) FirstObs2D() (*Scan2D, bool) {
	if f == nil {
		return nil, false
	}
	for _, obs := range f.Observations {
		if obs.Kind == KindObs2D && obs.Obs2D != nil {
			return obs.Obs2D, true
		}
	}
	return nil, false
}

// Action is the action collection of a step; the decider ignores its
// contents entirely (spec.md §6), so it carries no fields of interest here.
type Action struct{}
