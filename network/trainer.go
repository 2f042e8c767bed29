package network

import (
	"context"
	"errors"
	"fmt"
	"math"

	"zero/report"

	"golang.org/x/sync/errgroup"
)

// epsilon keeps the log of a zero probability finite
const epsilon = 1e-12

// Trainer updates a network by one step of gradient descent on a batch of
// examples. The gradient is computed in parallel over shards of the batch.
type Trainer struct {
	threads int
}

func NewTrainer(threads int) *Trainer {
	return &Trainer{threads: max(threads, 1)}
}

type gradients struct {
	policyWeights []float64
	policyBias    []float64
	valueWeights  []float64
	valueBias     float64
	policyLoss    float64
	valueLoss     float64
}

func newGradients(squares int) *gradients {
	return &gradients{
		policyWeights: make([]float64, squares*squares),
		policyBias:    make([]float64, squares),
		valueWeights:  make([]float64, squares),
	}
}

func (g *gradients) add(other *gradients) {
	for i, v := range other.policyWeights {
		g.policyWeights[i] += v
	}
	for i, v := range other.policyBias {
		g.policyBias[i] += v
	}
	for i, v := range other.valueWeights {
		g.valueWeights[i] += v
	}
	g.valueBias += other.valueBias
	g.policyLoss += other.policyLoss
	g.valueLoss += other.valueLoss
}

// Update returns the network after one update step and the loss of the batch
// measured before the step. net itself is not modified.
func (t *Trainer) Update(ctx context.Context, net *Network, examples []Example, learnRate float64) (*Network, report.Metrics, error) {
	if len(examples) == 0 {
		return nil, nil, errors.New("cannot train on an empty batch")
	}
	for i, example := range examples {
		if len(example.Input) != net.Squares || len(example.Policy) != net.Squares {
			return nil, nil, fmt.Errorf("example %d does not match the %d square network", i, net.Squares)
		}
	}

	shards := min(t.threads, len(examples))
	partials := make([]*gradients, shards)
	g, ctx := errgroup.WithContext(ctx)
	for s := 0; s < shards; s++ {
		s := s
		g.Go(func() error {
			partial := newGradients(net.Squares)
			for i := s; i < len(examples); i += shards {
				if err := ctx.Err(); err != nil {
					return err
				}
				accumulate(net, &examples[i], partial)
			}
			partials[s] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	total := newGradients(net.Squares)
	for _, partial := range partials {
		total.add(partial)
	}

	scale := learnRate / float64(len(examples))
	next := net.Clone()
	for i, v := range total.policyWeights {
		next.PolicyWeights[i] -= scale * v
	}
	for i, v := range total.policyBias {
		next.PolicyBias[i] -= scale * v
	}
	for i, v := range total.valueWeights {
		next.ValueWeights[i] -= scale * v
	}
	next.ValueBias -= scale * total.valueBias

	n := float64(len(examples))
	metrics := report.Metrics{
		"examples":    n,
		"policy_loss": total.policyLoss / n,
		"value_loss":  total.valueLoss / n,
		"loss":        (total.policyLoss + total.valueLoss) / n,
	}
	return next, metrics, nil
}

// accumulate adds the loss and gradient of one example: cross-entropy between
// the search policy and the predicted policy plus squared value error
func accumulate(net *Network, example *Example, g *gradients) {
	probs, value := net.Predict(example.Input)

	for o, p := range probs {
		target := example.Policy[o]
		if target > 0 {
			g.policyLoss -= target * math.Log(p+epsilon)
		}
		delta := p - target
		g.policyBias[o] += delta
		row := g.policyWeights[o*net.Squares : (o+1)*net.Squares]
		for i, x := range example.Input {
			row[i] += delta * x
		}
	}

	diff := example.Outcome - value
	g.valueLoss += diff * diff
	delta := -2 * diff * (1 - value*value)
	g.valueBias += delta
	for i, x := range example.Input {
		g.valueWeights[i] += delta * x
	}
}
