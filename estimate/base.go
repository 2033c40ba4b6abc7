package estimate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Kinematic is kinematic estimate of a tracked point
type Kinematic struct {
	// pos is estimated position
	pos *mat.VecDense
	// vel is estimated velocity
	vel *mat.VecDense
	// acc is estimated acceleration
	acc *mat.VecDense
}

// NewKinematic returns kinematic estimate given position, velocity and acceleration.
// Nil velocity or acceleration is treated as zero vector of the position dimension.
// It returns error if pos is nil or the dimensions differ.
func NewKinematic(pos, vel, acc mat.Vector) (*Kinematic, error) {
	if pos == nil {
		return nil, fmt.Errorf("invalid position: %v", pos)
	}

	n := pos.Len()
	if vel != nil && vel.Len() != n {
		return nil, fmt.Errorf("invalid dimensions. Pos: %d, Vel: %d", n, vel.Len())
	}

	if acc != nil && acc.Len() != n {
		return nil, fmt.Errorf("invalid dimensions. Pos: %d, Acc: %d", n, acc.Len())
	}

	return &Kinematic{
		pos: cloneOrZero(pos, n),
		vel: cloneOrZero(vel, n),
		acc: cloneOrZero(acc, n),
	}, nil
}

func cloneOrZero(v mat.Vector, n int) *mat.VecDense {
	out := mat.NewVecDense(n, nil)
	if v != nil {
		out.CopyVec(v)
	}

	return out
}

// Position returns estimated position
func (k *Kinematic) Position() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(k.pos)

	return v
}

// Velocity returns estimated velocity
func (k *Kinematic) Velocity() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(k.vel)

	return v
}

// Acceleration returns estimated acceleration
func (k *Kinematic) Acceleration() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(k.acc)

	return v
}

// String implements the Stringer interface.
func (k *Kinematic) String() string {
	return fmt.Sprintf("Kinematic{Pos=%v Vel=%v Acc=%v}",
		mat.Formatted(k.pos.T(), mat.Squeeze()),
		mat.Formatted(k.vel.T(), mat.Squeeze()),
		mat.Formatted(k.acc.T(), mat.Squeeze()))
}
