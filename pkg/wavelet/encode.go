package wavelet

import "sort"

// EncodeTopWavelets keeps the top absolute-magnitude coefficients of a
// Haar-decomposed square tile and encodes each as a ternary sign pair:
// (1,0) for a non-negative coefficient among the top, (0,1) for a
// negative one, (0,0) for everything else. Ties in magnitude are
// broken by lower flattened index, matching the source's stable
// selection order. The result has length 2*len(tile)*len(tile).
func EncodeTopWavelets(tile [][]float64, top int) []byte {
	side := len(tile)
	flat := make([]float64, side*side)
	idx := 0
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			flat[idx] = tile[r][c]
			idx++
		}
	}

	order := make([]int, len(flat))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ma, mb := abs(flat[order[a]]), abs(flat[order[b]])
		if ma != mb {
			return ma > mb
		}
		return order[a] < order[b]
	})
	if top > len(order) {
		top = len(order)
	}

	selected := make([]bool, len(flat))
	for _, i := range order[:top] {
		selected[i] = true
	}

	out := make([]byte, 2*len(flat))
	for i, v := range flat {
		if !selected[i] {
			continue
		}
		if v >= 0 {
			out[2*i] = 1
		} else {
			out[2*i+1] = 1
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
