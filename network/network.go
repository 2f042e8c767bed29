package network

import (
	"fmt"
	"math"

	"zero/config"
	"zero/game"

	"golang.org/x/exp/rand"
)

// Example is one training position: the encoded board from the mover's
// perspective, the search policy over squares and the final game outcome
// (+1 win, -1 loss, 0 draw) for the mover.
type Example struct {
	Input   []float64 `json:"input"`
	Policy  []float64 `json:"policy"`
	Outcome float64   `json:"outcome"`
}

// Network is a linear policy/value model over the board encoding. A Network is
// never modified after construction: training returns a new one, so a network
// can be exported while the next update is computed.
type Network struct {
	Squares       int       `json:"squares"`
	PolicyWeights []float64 `json:"policy_weights"` // squares x squares, row per output square
	PolicyBias    []float64 `json:"policy_bias"`
	ValueWeights  []float64 `json:"value_weights"`
	ValueBias     float64   `json:"value_bias"`
}

// New returns a network for board with small random weights
func New(board config.Board, seed uint64) *Network {
	squares := board.Squares()
	rng := rand.New(rand.NewSource(seed))
	scale := 1 / math.Sqrt(float64(squares))

	n := &Network{
		Squares:       squares,
		PolicyWeights: make([]float64, squares*squares),
		PolicyBias:    make([]float64, squares),
		ValueWeights:  make([]float64, squares),
	}
	for i := range n.PolicyWeights {
		n.PolicyWeights[i] = (2*rng.Float64() - 1) * scale
	}
	for i := range n.ValueWeights {
		n.ValueWeights[i] = (2*rng.Float64() - 1) * scale
	}
	return n
}

// Validate checks that the weight shapes agree with each other and with board
func (n *Network) Validate(board config.Board) error {
	squares := board.Squares()
	switch {
	case n.Squares != squares:
		return fmt.Errorf("network has %d squares, board %s has %d", n.Squares, board, squares)
	case len(n.PolicyWeights) != squares*squares:
		return fmt.Errorf("network has %d policy weights, want %d", len(n.PolicyWeights), squares*squares)
	case len(n.PolicyBias) != squares:
		return fmt.Errorf("network has %d policy biases, want %d", len(n.PolicyBias), squares)
	case len(n.ValueWeights) != squares:
		return fmt.Errorf("network has %d value weights, want %d", len(n.ValueWeights), squares)
	}
	return nil
}

func (n *Network) Clone() *Network {
	return &Network{
		Squares:       n.Squares,
		PolicyWeights: append([]float64(nil), n.PolicyWeights...),
		PolicyBias:    append([]float64(nil), n.PolicyBias...),
		ValueWeights:  append([]float64(nil), n.ValueWeights...),
		ValueBias:     n.ValueBias,
	}
}

// Predict returns the move probabilities over all squares and the expected
// outcome in [-1, 1] for the player to move
func (n *Network) Predict(input []float64) ([]float64, float64) {
	logits := make([]float64, n.Squares)
	for o := range logits {
		row := n.PolicyWeights[o*n.Squares : (o+1)*n.Squares]
		logits[o] = n.PolicyBias[o] + dot(row, input)
	}
	return softmax(logits), math.Tanh(n.ValueBias + dot(n.ValueWeights, input))
}

// Evaluate scores a position for the player to move, for use at search cutoffs
func (n *Network) Evaluate(state game.State) float64 {
	_, value := n.Predict(state.Input())
	return value
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, l)
	}
	probs := make([]float64, len(logits))
	sum := 0.0
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
