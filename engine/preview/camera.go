package preview

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/autorig/engine/math"
)

/** @brief A fixed orthographic view direction. */
type View uint8

const (
	/** @brief Looking along +Y: X to the right, Z up. */
	ViewFront View = iota
	/** @brief Looking along -X: Y to the right, Z up. */
	ViewSide
	/** @brief Looking down along -Z: X to the right, Y up. */
	ViewTop
)

func (v View) String() string {
	switch v {
	case ViewSide:
		return "side"
	case ViewTop:
		return "top"
	default:
		return "front"
	}
}

func ParseView(s string) (View, error) {
	switch strings.ToLower(s) {
	case "", "front":
		return ViewFront, nil
	case "side", "right":
		return ViewSide, nil
	case "top":
		return ViewTop, nil
	}
	return ViewFront, fmt.Errorf("unknown preview view %q", s)
}

/**
 * @brief An orthographic camera. Screen X and Y are the camera-space X and
 * Y axes; the camera looks down its local -Z.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position math.Vec3
	/**
	 * @brief The rotation of this camera using Euler angles (pitch, yaw, roll),
	 * in radians. NOTE: Do not set this directly, use SetEulerRotation().
	 */
	EulerRotation math.Vec3
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/**
	 * @brief The view matrix of this camera. Use GetView() so it is
	 * recalculated when needed.
	 */
	ViewMatrix math.Mat4
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

// NewViewCamera returns a camera at the origin facing the given view.
func NewViewCamera(v View) *Camera {
	c := NewCamera()
	quarter := math.DegToRad(90)
	switch v {
	case ViewFront:
		c.SetEulerRotation(math.NewVec3(quarter, 0, 0))
	case ViewSide:
		c.SetEulerRotation(math.NewVec3(quarter, 0, quarter))
	}
	return c
}

func (c *Camera) Reset() {
	c.EulerRotation = math.NewVec3Zero()
	c.Position = math.NewVec3Zero()
	c.IsDirty = false
	c.ViewMatrix = math.NewMat4Identity()
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) GetEulerRotation() math.Vec3 {
	return c.EulerRotation
}

func (c *Camera) SetEulerRotation(rotation math.Vec3) {
	c.EulerRotation = rotation
	c.IsDirty = true
}

func (c *Camera) GetView() math.Mat4 {
	if c.IsDirty {
		rotation := math.NewMat4EulerXYZ(c.EulerRotation.X, c.EulerRotation.Y, c.EulerRotation.Z)
		translation := math.NewMat4Translation(c.Position)

		c.ViewMatrix = rotation.Mul(translation)
		c.ViewMatrix = c.ViewMatrix.Inverse()

		c.IsDirty = false
	}
	return c.ViewMatrix
}

// Project returns p in camera space; X and Y are the screen axes.
func (c *Camera) Project(p math.Vec3) math.Vec3 {
	return p.Transform(c.GetView())
}

func (c *Camera) Yaw(amount float64) {
	c.EulerRotation.Y += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float64) {
	c.EulerRotation.X += amount

	// Clamp to avoid Gimbal lock.
	limit := math.DegToRad(89.0)
	c.EulerRotation.X = math.Clamp(c.EulerRotation.X, -limit, limit)

	c.IsDirty = true
}
