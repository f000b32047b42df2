package loader

import "math/rand"

// TrainTestSplit splits X, Y into train and test sets by ratio. The same seed
// always yields the same partition. The test set gets ceil(n*testRatio) rows.
func TrainTestSplit(X [][]float64, Y []float64, testRatio float64, seed int64) (XTrain, XTest [][]float64, YTrain, YTest []float64) {
	n := len(X)
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := TestSize(n, testRatio)
	for i := range n {
		if i < nTest {
			XTest = append(XTest, X[indices[i]])
			YTest = append(YTest, Y[indices[i]])
		} else {
			XTrain = append(XTrain, X[indices[i]])
			YTrain = append(YTrain, Y[indices[i]])
		}
	}
	return
}

// TestSize is the number of held-out rows for n samples.
func TestSize(n int, testRatio float64) int {
	if n == 0 || testRatio <= 0 {
		return 0
	}
	k := int(float64(n) * testRatio)
	if float64(k) < float64(n)*testRatio {
		k++
	}
	return min(k, n)
}
