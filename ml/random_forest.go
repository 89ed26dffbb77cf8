package ml

import "fmt"

// RandomForest averages the class probabilities of its trees.
type RandomForest struct {
	*base
	trees [][]TreeNode
}

func newRandomForest(b *base, trees []TreeArtifact) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", ErrCorruptModel)
	}
	rf := &RandomForest{base: b, trees: make([][]TreeNode, len(trees))}
	sum := make([]float64, len(b.names))
	for i, tree := range trees {
		if err := validateNodes(tree.Nodes, len(b.names), len(b.classes)); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		rf.trees[i] = tree.Nodes
		for j, v := range normalizeImportances(treeImportances(tree.Nodes, len(b.names))) {
			sum[j] += v
		}
	}
	if len(b.importances) == 0 {
		b.importances = normalizeImportances(sum)
	}
	return rf, nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if err := rf.checkFeatures(features); err != nil {
		return nil, err
	}
	proba := make([]float64, len(rf.classes))
	for _, nodes := range rf.trees {
		p, err := leafProba(nodes, features)
		if err != nil {
			return nil, err
		}
		for i := range proba {
			proba[i] += p[i]
		}
	}
	for i := range proba {
		proba[i] /= float64(len(rf.trees))
	}
	return proba, nil
}

func (rf *RandomForest) PredictLabel(features []float64) (int, error) {
	proba, err := rf.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return rf.labelFor(proba), nil
}

func (rf *RandomForest) Size() int {
	return len(rf.trees)
}
