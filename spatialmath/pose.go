// Package spatialmath defines the 2D/3D rigid-body poses shared by the
// edge registration decider and the ray simulator. Composition is backed
// by dual quaternions, the same representation the wider toolkit uses
// for rigid transforms (see gonum.org/v1/gonum/num/dualquat), rather than
// hand-rolled trigonometric matrices.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

const degToRad = math.Pi / 180

// Pose2D is a 2D rigid-body pose: x, y in metres, phi in radians.
type Pose2D struct {
	X, Y, Phi float64
}

// Pose3D is a 3D rigid-body pose using yaw/pitch/roll Euler angles, in radians.
type Pose3D struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
}

// NewPose2D builds a Pose2D from cartesian coordinates and a heading in radians.
func NewPose2D(x, y, phi float64) Pose2D {
	return Pose2D{X: x, Y: y, Phi: phi}
}

// NewPose3D builds a Pose3D from cartesian coordinates and yaw/pitch/roll in radians.
func NewPose3D(x, y, z, yaw, pitch, roll float64) Pose3D {
	return Pose3D{X: x, Y: y, Z: z, Yaw: yaw, Pitch: pitch, Roll: roll}
}

// Project2D drops z, pitch and roll, yielding the 2D pose spec.md §3 describes.
func (p Pose3D) Project2D() Pose2D {
	return Pose2D{X: p.X, Y: p.Y, Phi: p.Yaw}
}

// From2D lifts a Pose2D to a Pose3D with zero z/pitch/roll, the inverse of Project2D.
func From2D(p Pose2D) Pose3D {
	return Pose3D{X: p.X, Y: p.Y, Yaw: p.Phi}
}

// eulerToQuat mirrors the yaw/pitch/roll -> quaternion convention used
// throughout the toolkit's kinmath/spatialmath packages.
func eulerToQuat(yaw, pitch, roll float64) quat.Number {
	cy, sy := math.Cos(yaw*0.5), math.Sin(yaw*0.5)
	cp, sp := math.Cos(pitch*0.5), math.Sin(pitch*0.5)
	cr, sr := math.Cos(roll*0.5), math.Sin(roll*0.5)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

func quatToEuler(q quat.Number) (yaw, pitch, roll float64) {
	sinrCosp := 2 * (q.Real*q.Imag + q.Jmag*q.Kmag)
	cosrCosp := 1 - 2*(q.Imag*q.Imag+q.Jmag*q.Jmag)
	roll = math.Atan2(sinrCosp, cosrCosp)

	sinp := 2 * (q.Real*q.Jmag - q.Kmag*q.Imag)
	switch {
	case sinp >= 1:
		pitch = math.Pi / 2
	case sinp <= -1:
		pitch = -math.Pi / 2
	default:
		pitch = math.Asin(sinp)
	}

	sinyCosp := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosyCosp := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	yaw = math.Atan2(sinyCosp, cosyCosp)
	return yaw, pitch, roll
}

// toDualQuat renders a Pose3D as a dual quaternion, translation-then-rotation,
// in the same Real/Dual layout the toolkit's QuatTrans type uses.
func (p Pose3D) toDualQuat() dualquat.Number {
	real := eulerToQuat(p.Yaw, p.Pitch, p.Roll)
	dq := dualquat.Number{Real: real}
	dq.Dual = quat.Scale(0.5, quat.Mul(quat.Number{Imag: p.X, Jmag: p.Y, Kmag: p.Z}, real))
	return dq
}

func fromDualQuat(dq dualquat.Number) Pose3D {
	yaw, pitch, roll := quatToEuler(dq.Real)
	t := quat.Scale(2, quat.Mul(dq.Dual, quat.Conj(dq.Real)))
	return Pose3D{X: t.Imag, Y: t.Jmag, Z: t.Kmag, Yaw: yaw, Pitch: pitch, Roll: roll}
}

// Compose implements P3 ⊕ P3: apply `other` in this pose's frame, returning
// the resulting pose in the outer frame. Composition order matches the
// robot-pose ⊕ sensor-pose convention used throughout spec.md §4.2.
func (p Pose3D) Compose(other Pose3D) Pose3D {
	return fromDualQuat(dualquat.Mul(p.toDualQuat(), other.toDualQuat()))
}

// Compose2D implements the 2D analogue of Compose, used when composing two
// already-planar poses (e.g. a node pose with a 2D sensor offset).
func (p Pose2D) Compose2D(other Pose2D) Pose2D {
	return From2D(p).Compose(From2D(other)).Project2D()
}

// DistanceTo returns the Euclidean translational distance between two 3D poses,
// the posegraph.Graph.DistanceTo primitive of spec.md §3.
func (p Pose3D) DistanceTo(other Pose3D) float64 {
	dx, dy, dz := p.X-other.X, p.Y-other.Y, p.Z-other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// DistanceTo is the 2D analogue of Pose3D.DistanceTo.
func (p Pose2D) DistanceTo(other Pose2D) float64 {
	dx, dy := p.X-other.X, p.Y-other.Y
	return math.Hypot(dx, dy)
}

// DegToRad converts degrees to radians, matching the toolkit's utils.DegToRad helper.
func DegToRad(deg float64) float64 { return deg * degToRad }

// RadToDeg converts radians to degrees, matching the toolkit's utils.RadToDeg helper.
func RadToDeg(rad float64) float64 { return rad / degToRad }
