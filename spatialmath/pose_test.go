package spatialmath

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestProjectAndLift(t *testing.T) {
	p3 := NewPose3D(1, 2, 3, 0.5, 0.1, 0.2)
	p2 := p3.Project2D()
	test.That(t, p2.X, test.ShouldEqual, 1.0)
	test.That(t, p2.Y, test.ShouldEqual, 2.0)
	test.That(t, p2.Phi, test.ShouldEqual, 0.5)

	back := From2D(p2)
	test.That(t, back.Z, test.ShouldEqual, 0.0)
	test.That(t, back.Pitch, test.ShouldEqual, 0.0)
	test.That(t, back.Roll, test.ShouldEqual, 0.0)
}

func TestComposeIdentity(t *testing.T) {
	base := NewPose3D(1, 2, 0, math.Pi/2, 0, 0)
	identity := NewPose3D(0, 0, 0, 0, 0, 0)
	composed := base.Compose(identity)

	test.That(t, composed.X, test.ShouldAlmostEqual, base.X)
	test.That(t, composed.Y, test.ShouldAlmostEqual, base.Y)
	test.That(t, composed.Yaw, test.ShouldAlmostEqual, base.Yaw)
}

func TestComposeTranslatesInRotatedFrame(t *testing.T) {
	// Robot facing +90deg (yaw = pi/2), sensor offset +1 in its own X axis
	// should land at +1 in world Y.
	robot := NewPose3D(0, 0, 0, math.Pi/2, 0, 0)
	sensorOffset := NewPose3D(1, 0, 0, 0, 0, 0)
	world := robot.Compose(sensorOffset)

	test.That(t, world.X, test.ShouldAlmostEqual, 0.0)
	test.That(t, world.Y, test.ShouldAlmostEqual, 1.0)
}

func TestDistanceTo2D(t *testing.T) {
	a := NewPose2D(0, 0, 0)
	b := NewPose2D(3, 4, 0)
	test.That(t, a.DistanceTo(b), test.ShouldEqual, 5.0)
}

func TestDistanceTo3D(t *testing.T) {
	a := NewPose3D(0, 0, 0, 0, 0, 0)
	b := NewPose3D(0.2, 0, 0, 0, 0, 0)
	test.That(t, a.DistanceTo(b), test.ShouldAlmostEqual, 0.2)
}

func TestDegRadConversion(t *testing.T) {
	test.That(t, RadToDeg(DegToRad(180)), test.ShouldAlmostEqual, 180.0)
}
