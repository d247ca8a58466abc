package scan

import (
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/graphslam-core/spatialmath"
)

func TestScan3DLazyLoad(t *testing.T) {
	s3 := NewLazyScan3D("/data/rawlog_Images/0001.png")
	called := false
	err := s3.Load(func(path string) ([][]float32, [][]uint8, bool, error) {
		called = true
		test.That(t, path, test.ShouldEqual, "/data/rawlog_Images/0001.png")
		return [][]float32{{1, 2, 3}}, nil, false, nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, called, test.ShouldBeTrue)

	// a second Load should not re-invoke the loader
	err = s3.Load(func(path string) ([][]float32, [][]uint8, bool, error) {
		t.Fatal("loader invoked twice")
		return nil, nil, false, nil
	})
	test.That(t, err, test.ShouldBeNil)
}

func TestResolveImagePath(t *testing.T) {
	s3 := NewLazyScan3D("/rawlogs/session_Images/0005.png")
	s3.ResolveImagePath("/external/store")
	test.That(t, s3.ExternalStoragePath(), test.ShouldEqual, "/external/store/0005.png")
}

func TestResolveImagePathNoop(t *testing.T) {
	s3 := NewLazyScan3D("/rawlogs/session_Images/0005.png")
	s3.ResolveImagePath("")
	test.That(t, s3.ExternalStoragePath(), test.ShouldEqual, "/rawlogs/session_Images/0005.png")
}

func TestProject3DTo2D(t *testing.T) {
	s3 := &Scan3D{RangeImage: [][]float32{{1, 2}, {3, 4, 5}, {6, 7}}}
	s2 := Project3DTo2D(s3, 1.0, 10.0, spatialmath.NewPose3D(0, 0, 0, 0, 0, 0))
	test.That(t, s2.N(), test.ShouldEqual, 3)
	test.That(t, s2.Ranges[0], test.ShouldEqual, 3.0)
}

func TestSensoryFrameFirstObs2D(t *testing.T) {
	frame := &SensoryFrame{Observations: []Observation{
		{Kind: KindAction},
		{Kind: KindObs2D, Obs2D: &Scan2D{Ranges: []float64{1, 2}}},
	}}
	s2, ok := frame.FirstObs2D()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, s2.N(), test.ShouldEqual, 2)

	empty := &SensoryFrame{}
	_, ok = empty.FirstObs2D()
	test.That(t, ok, test.ShouldBeFalse)
}
