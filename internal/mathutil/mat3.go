package mathutil

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Mat3 is a 3×3 matrix stored row-major: [r0c0, r0c1, r0c2, r1c0, ...].
// Used as a homogeneous 2D affine transform; the last row is (0, 0, 1).
// Value type for zero heap allocation.
type Mat3 [9]float64

func Mat3Identity() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Translate returns the translation by (x, y).
func Translate(x, y float64) Mat3 {
	return Mat3{1, 0, x, 0, 1, y, 0, 0, 1}
}

// Scale returns the scaling by (sx, sy) around the origin.
func Scale(sx, sy float64) Mat3 {
	return Mat3{sx, 0, 0, 0, sy, 0, 0, 0, 1}
}

// Rotate returns the rotation by a radians around the origin. In image
// space (y down) positive angles turn clockwise.
func Rotate(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}
}

// Mat3Mul returns a × b.
func Mat3Mul(a, b Mat3) Mat3 {
	var m Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r*3+c] = a[r*3+0]*b[0*3+c] + a[r*3+1]*b[1*3+c] + a[r*3+2]*b[2*3+c]
		}
	}
	return m
}

// Chain multiplies left to right: Chain(a, b, c) = a × b × c, so c is
// applied to a point first.
func Chain(ms ...Mat3) Mat3 {
	out := Mat3Identity()
	for _, m := range ms {
		out = Mat3Mul(out, m)
	}
	return out
}

// MulPoint transforms a 2D point (w=1).
func (m Mat3) MulPoint(p Vec2) Vec2 {
	return Vec2{
		m[0]*p[0] + m[1]*p[1] + m[2],
		m[3]*p[0] + m[4]*p[1] + m[5],
	}
}

func (m Mat3) Det() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

func (m Mat3) Inverse() Mat3 {
	d := m.Det()
	if d == 0 {
		return Mat3Identity()
	}
	invD := 1.0 / d
	return Mat3{
		(m[4]*m[8] - m[5]*m[7]) * invD,
		(m[2]*m[7] - m[1]*m[8]) * invD,
		(m[1]*m[5] - m[2]*m[4]) * invD,
		(m[5]*m[6] - m[3]*m[8]) * invD,
		(m[0]*m[8] - m[2]*m[6]) * invD,
		(m[2]*m[3] - m[0]*m[5]) * invD,
		(m[3]*m[7] - m[4]*m[6]) * invD,
		(m[1]*m[6] - m[0]*m[7]) * invD,
		(m[0]*m[4] - m[1]*m[3]) * invD,
	}
}

// Aff3 returns the top two rows in the layout golang.org/x/image/draw expects.
func (m Mat3) Aff3() f64.Aff3 {
	return f64.Aff3{m[0], m[1], m[2], m[3], m[4], m[5]}
}

// ApproxEqual compares element-wise within eps.
func (m Mat3) ApproxEqual(o Mat3, eps float64) bool {
	for i := range m {
		if math.Abs(m[i]-o[i]) > eps {
			return false
		}
	}
	return true
}
