package ml

import (
	"fmt"
)

type DecisionTree struct {
	*base
	nodes []TreeNode
}

// TreeNode is one node of a fitted tree. Value holds the per-class sample
// weight that reached the node.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	Value      []float64 `json:"value"`
	Samples    float64   `json:"samples,omitempty"`
	IsLeaf     bool      `json:"is_leaf"`
}

func newDecisionTree(b *base, nodes []TreeNode) (*DecisionTree, error) {
	if err := validateNodes(nodes, len(b.names), len(b.classes)); err != nil {
		return nil, err
	}
	dt := &DecisionTree{base: b, nodes: nodes}
	if len(b.importances) == 0 {
		b.importances = normalizeImportances(treeImportances(nodes, len(b.names)))
	}
	return dt, nil
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	if err := dt.checkFeatures(features); err != nil {
		return nil, err
	}
	return leafProba(dt.nodes, features)
}

func (dt *DecisionTree) PredictLabel(features []float64) (int, error) {
	proba, err := dt.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return dt.labelFor(proba), nil
}

func leafProba(nodes []TreeNode, features []float64) ([]float64, error) {
	idx := 0
	// A valid tree reaches a leaf in at most len(nodes) steps.
	for steps := 0; steps <= len(nodes); steps++ {
		node := nodes[idx]
		if node.IsLeaf {
			return normalize(node.Value), nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
	return nil, fmt.Errorf("%w: tree has a cycle", ErrCorruptModel)
}

func validateNodes(nodes []TreeNode, featureCount, classCount int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("%w: empty tree", ErrCorruptModel)
	}
	for i, node := range nodes {
		if len(node.Value) != classCount {
			return fmt.Errorf("%w: node %d has %d class values, expected %d", ErrCorruptModel, i, len(node.Value), classCount)
		}
		for _, v := range node.Value {
			if v < 0 {
				return fmt.Errorf("%w: node %d has a negative class value", ErrCorruptModel, i)
			}
		}
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
			return fmt.Errorf("%w: node %d feature index %d out of range", ErrCorruptModel, i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("%w: node %d has invalid children", ErrCorruptModel, i)
		}
	}
	return nil
}

// treeImportances is the total weighted gini decrease per feature.
func treeImportances(nodes []TreeNode, featureCount int) []float64 {
	importances := make([]float64, featureCount)
	for _, node := range nodes {
		if node.IsLeaf {
			continue
		}
		left := nodes[node.LeftChild]
		right := nodes[node.RightChild]
		decrease := weight(node)*gini(node.Value) - weight(left)*gini(left.Value) - weight(right)*gini(right.Value)
		if decrease > 0 {
			importances[node.FeatureIdx] += decrease
		}
	}
	return importances
}

func normalizeImportances(values []float64) []float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total == 0 {
		return values
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / total
	}
	return out
}

func weight(node TreeNode) float64 {
	if node.Samples > 0 {
		return node.Samples
	}
	total := 0.0
	for _, v := range node.Value {
		total += v
	}
	return total
}

func gini(counts []float64) float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		prob := c / total
		impurity -= prob * prob
	}
	return impurity
}
