// Package forest implements a pre-fitted decision forest classifier.
package forest

import (
	"errors"
	"fmt"

	"github.com/hed1ad/theftguard/pkg/detectors"
)

// Kind identifies random forest artifacts.
const Kind = "random_forest"

// Node is a node in a decision tree.
type Node struct {
	// Split parameters (for internal nodes)
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`

	// Children
	Left  *Node `json:"left,omitempty"`
	Right *Node `json:"right,omitempty"`

	// Leaf information: fraction of theft samples that reached this leaf
	Probability float64 `json:"probability"`
}

func (n *Node) isLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Params is the fitted state.
type Params struct {
	NFeatures int     `json:"n_features"`
	Trees     []*Node `json:"trees"`
}

// Forest averages leaf probabilities over its trees.
type Forest struct {
	nFeatures int
	trees     []*Node
	cfg       detectors.Config
}

var _ detectors.Classifier = (*Forest)(nil)

// Option configures a Forest.
type Option func(*Forest)

// WithThreshold sets the decision threshold.
func WithThreshold(t float64) Option {
	return func(f *Forest) {
		f.cfg.Threshold = t
	}
}

// New creates a Forest from fitted trees.
func New(p Params, opts ...Option) (*Forest, error) {
	if p.NFeatures <= 0 {
		return nil, errors.New("forest: n_features must be positive")
	}
	if len(p.Trees) == 0 {
		return nil, errors.New("forest: no trees")
	}
	for i, root := range p.Trees {
		if err := validate(root, p.NFeatures); err != nil {
			return nil, fmt.Errorf("forest: tree %d: %w", i, err)
		}
	}

	f := &Forest{
		nFeatures: p.NFeatures,
		trees:     p.Trees,
		cfg:       detectors.DefaultConfig(),
	}

	for _, opt := range opts {
		opt(f)
	}
	if err := f.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("forest: %w", err)
	}

	return f, nil
}

func validate(n *Node, nFeatures int) error {
	if n == nil {
		return errors.New("nil node")
	}
	if n.isLeaf() {
		if !(n.Probability >= 0 && n.Probability <= 1) {
			return fmt.Errorf("leaf probability %v outside [0, 1]", n.Probability)
		}
		return nil
	}
	if n.Left == nil || n.Right == nil {
		return errors.New("internal node with a single child")
	}
	if n.Feature < 0 || n.Feature >= nFeatures {
		return fmt.Errorf("split feature %d out of range", n.Feature)
	}
	if err := detectors.CheckFinite("threshold", n.Threshold); err != nil {
		return err
	}
	if err := validate(n.Left, nFeatures); err != nil {
		return err
	}
	return validate(n.Right, nFeatures)
}

// Params returns the fitted state. Trees are shared, not copied.
func (f *Forest) Params() Params {
	return Params{NFeatures: f.nFeatures, Trees: f.trees}
}

// Width returns the number of features.
func (f *Forest) Width() int {
	return f.nFeatures
}

// Predict scores a normalized sample.
func (f *Forest) Predict(sample []float64) (detectors.Prediction, error) {
	if err := detectors.CheckWidth(sample, f.nFeatures); err != nil {
		return detectors.Prediction{}, err
	}

	var total float64
	for _, root := range f.trees {
		total += leafProbability(sample, root)
	}

	return f.cfg.Decide(total / float64(len(f.trees))), nil
}

// leafProbability walks a sample down to its leaf.
func leafProbability(sample []float64, n *Node) float64 {
	for !n.isLeaf() {
		if sample[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Probability
}
