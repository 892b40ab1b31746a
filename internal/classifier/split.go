package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// StratifiedSplit partitions row indices into train and test sets, keeping
// the class ratio of labels in both. The result depends only on labels,
// testRatio and seed.
func StratifiedSplit(labels []int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %g", testRatio)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), 0))

	for _, class := range classIndices(labels) {
		if len(class) < 2 {
			return nil, nil, fmt.Errorf("%w: a class has %d sample(s), need at least 2", ErrTooFewSamples, len(class))
		}
		rng.Shuffle(len(class), func(i, j int) { class[i], class[j] = class[j], class[i] })

		nTest := int(math.Round(testRatio * float64(len(class))))
		nTest = min(max(nTest, 1), len(class)-1)
		test = append(test, class[:nTest]...)
		train = append(train, class[nTest:]...)
	}
	return train, test, nil
}

// Fold is one cross-validation split of row indices
type Fold struct {
	Train []int
	Valid []int
}

// StratifiedKFold deals each class's rows round-robin into k folds. k is
// lowered to the size of the smallest class when needed.
func StratifiedKFold(labels []int, k int) ([]Fold, error) {
	classes := classIndices(labels)
	for _, class := range classes {
		k = min(k, len(class))
	}
	if k < 2 {
		return nil, fmt.Errorf("%w: need at least 2 samples per class for cross-validation", ErrTooFewSamples)
	}

	assign := make([]int, len(labels))
	for _, class := range classes {
		for pos, idx := range class {
			assign[idx] = pos % k
		}
	}

	folds := make([]Fold, k)
	for idx, f := range assign {
		for i := range folds {
			if i == f {
				folds[i].Valid = append(folds[i].Valid, idx)
			} else {
				folds[i].Train = append(folds[i].Train, idx)
			}
		}
	}
	return folds, nil
}

// classIndices groups row indices by label, ordered by label value
func classIndices(labels []int) [][]int {
	byLabel := map[int][]int{}
	var keys []int
	for i, l := range labels {
		if _, ok := byLabel[l]; !ok {
			keys = append(keys, l)
		}
		byLabel[l] = append(byLabel[l], i)
	}
	slices.Sort(keys)
	out := make([][]int, len(keys))
	for i, k := range keys {
		out[i] = byLabel[k]
	}
	return out
}

func take[T any](src []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}
