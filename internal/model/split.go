package model

import (
	"math"
	"math/rand/v2"
)

// TrainTestSplit shuffles sample indices with a seeded source and returns
// train and test index sets, the test set holding testFraction of samples.
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	nTest := testSize(n, testFraction)
	return idx[nTest:], idx[:nTest]
}

// ChronologicalSplit keeps sample order: the last testFraction of samples
// form the test set so no future window leaks into training.
func ChronologicalSplit(n int, testFraction float64) (train, test []int) {
	nTest := testSize(n, testFraction)
	cut := n - nTest
	train = make([]int, cut)
	for i := range train {
		train[i] = i
	}
	test = make([]int, nTest)
	for i := range test {
		test[i] = cut + i
	}
	return train, test
}

func testSize(n int, fraction float64) int {
	nTest := int(math.Ceil(float64(n) * fraction))
	return min(max(nTest, 0), n)
}
