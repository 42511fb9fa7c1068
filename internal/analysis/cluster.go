package analysis

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	minClusters   = 2
	maxClusters   = 8
	kmeansSeed    = 42
	kmeansRestart = 10
	kmeansMaxIter = 300
)

// ClusterCount returns round(sqrt(n/2)) clamped to [2, 8].
func ClusterCount(n int) int {
	k := int(math.Round(math.Sqrt(float64(n) / 2)))
	if k < minClusters {
		return minClusters
	}
	if k > maxClusters {
		return maxClusters
	}
	return k
}

// assignClusters labels the rows of x. With fewer rows than clusters every
// row is labelled 0.
func assignClusters(x *mat.Dense) []int {
	if x == nil {
		return nil
	}
	n, _ := x.Dims()
	k := ClusterCount(n)
	if n < k {
		return make([]int, n)
	}
	return kmeans(x, k)
}

// kmeans runs seeded k-means++ restarts and keeps the lowest-inertia result.
func kmeans(x *mat.Dense, k int) []int {
	n, _ := x.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = x.RawRowView(i)
	}

	rng := rand.New(rand.NewPCG(kmeansSeed, 0))
	var (
		best        []int
		bestInertia = math.Inf(1)
	)
	for r := 0; r < kmeansRestart; r++ {
		labels, inertia := lloyd(rows, seedCentroids(rows, k, rng))
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}
	return best
}

// seedCentroids picks k starting centroids with k-means++ weighting.
func seedCentroids(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(rows[rng.IntN(n)]))

	dist := make([]float64, n)
	for i, row := range rows {
		dist[i] = sqDist(row, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(dist)
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target < 0 {
					next = i
					break
				}
				next = i
			}
		} else {
			next = rng.IntN(n)
		}
		c := clone(rows[next])
		centroids = append(centroids, c)
		for i, row := range rows {
			if d := sqDist(row, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

// lloyd iterates assignment and update until labels settle.
func lloyd(rows [][]float64, centroids [][]float64) ([]int, float64) {
	n, k := len(rows), len(centroids)
	dim := len(rows[0])
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	var inertia float64
	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		inertia = 0
		for i, row := range rows {
			best, bestD := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := sqDist(row, centroid); d < bestD {
					best, bestD = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
			inertia += bestD
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, row := range rows {
			floats.Add(sums[labels[i]], row)
			counts[labels[i]]++
		}
		for c := range centroids {
			// An empty cluster keeps its previous centroid.
			if counts[c] > 0 {
				floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
			}
		}
	}
	return labels, inertia
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
