package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	{ // Bucket sizes
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				kMin, kMax := pm.GetBucketRange(np)
				histo[kMax-kMin]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		// More workers than elements collapses to one element per worker
		assert.Equal(t, map[int]int{1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		assert.Equal(t, 287, getTotal(getHisto(287, 32)))
		for n := 64; n < 2000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
		assert.Equal(t, 1, NewPartitionMap(0, 10).ParallelDegree)
	}
	{ // Buckets tile the range in order
		for maxIndex := 10; maxIndex < 300; maxIndex++ {
			pm := NewPartitionMap(5, maxIndex)
			next := 0
			for bn := 0; bn < pm.ParallelDegree; bn++ {
				kMin, kMax := pm.GetBucketRange(bn)
				assert.Equal(t, next, kMin)
				assert.Greater(t, kMax, kMin)
				next = kMax
			}
			assert.Equal(t, maxIndex, next)
		}
	}
}
