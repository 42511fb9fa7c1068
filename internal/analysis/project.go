package analysis

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// stack builds an n×d matrix from vectors, zero-padding rows to the widest
// vector.
func stack(vectors [][]float32) *mat.Dense {
	if len(vectors) == 0 {
		return nil
	}
	width := 0
	for _, v := range vectors {
		if len(v) > width {
			width = len(v)
		}
	}
	if width == 0 {
		width = 1
	}
	m := mat.NewDense(len(vectors), width, nil)
	for i, v := range vectors {
		row := m.RawRowView(i)
		for j, x := range v {
			row[j] = float64(x)
		}
	}
	return m
}

// project2D returns each row's coordinates on the first two principal
// components. Fewer than two rows, fewer than two columns, or a failed
// decomposition yield all-zero coordinates.
func project2D(x *mat.Dense) [][2]float64 {
	if x == nil {
		return nil
	}
	n, d := x.Dims()
	coords := make([][2]float64, n)
	if n < 2 || d < 2 {
		return coords
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return coords
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, c := vecs.Dims()
	if c < 2 {
		return coords
	}

	centered := mat.DenseCopyOf(x)
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, x)
		var mean float64
		for _, v := range col {
			mean += v
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			centered.Set(i, j, centered.At(i, j)-mean)
		}
	}

	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, d, 0, 2))
	for i := 0; i < n; i++ {
		coords[i] = [2]float64{proj.At(i, 0), proj.At(i, 1)}
	}
	return coords
}
