package searcher

import (
	"math"
	"sync"

	"zero/game"

	"golang.org/x/exp/rand"
)

// decision is a search tree node reached by a move of mover. Rewards are kept
// from the mover's perspective so a parent picks the child with the highest
// score for the player to move.
type decision struct {
	sync.RWMutex
	parent     *decision
	mover      string
	unexplored []game.Move
	explored   []game.Move
	children   []*decision
	rewards    float64
	visits     float64
}

func newDecision(parent *decision, mover string, state game.State, rng *rand.Rand) *decision {
	moves := state.LegalMoves()
	rng.Shuffle(len(moves), func(i, j int) { moves[i], moves[j] = moves[j], moves[i] })

	return &decision{
		parent:     parent,
		mover:      mover,
		unexplored: moves,
		explored:   make([]game.Move, 0, len(moves)),
		children:   make([]*decision, 0, len(moves)),
	}
}

// SelectOrExpand descends one level. It returns the same node and state for a
// terminal node, a new child for an expandable node, and the best child by UCT
// for a fully expanded node. selected is true only in the last case.
func (d *decision) SelectOrExpand(state game.State, rng *rand.Rand) (*decision, game.State, bool) {
	d.Lock()
	defer d.Unlock()

	if len(d.unexplored) == 0 && len(d.children) == 0 { // Terminal node
		return d, state, false
	}

	if len(d.unexplored) > 0 { // Expandable node
		last := len(d.unexplored) - 1
		move := d.unexplored[last]
		d.unexplored = d.unexplored[:last]

		childState := state.Play(move)
		child := newDecision(d, state.Player(), childState, rng)
		d.explored = append(d.explored, move)
		d.children = append(d.children, child)
		child.applyLoss()
		return child, childState, false
	}

	// Fully expanded node
	ith := d.pickChild()
	child := d.children[ith]
	child.applyLoss()
	return child, state.Play(d.explored[ith]), true
}

func (d *decision) pickChild() int {
	// Concurrent selections may reach the children before the first backup
	// reaches this node
	policy := newUCT(CSquared, math.Max(d.visits, 1))

	maxIndex := -1
	maxScore := math.Inf(-1)
	for i, child := range d.children {
		score := child.score(policy)
		if score > maxScore {
			maxScore = score
			maxIndex = i
		}
	}
	return maxIndex
}

// applyLoss adds a virtual loss to steer concurrent selections elsewhere until
// the real outcome is backed up
func (d *decision) applyLoss() {
	d.Lock()
	defer d.Unlock()

	d.rewards += Loss
	d.visits++
}

func (d *decision) score(policy *uct) float64 {
	d.RLock()
	defer d.RUnlock()

	return policy.evaluate(d.rewards, d.visits)
}

// Backup records an outcome scored from player's perspective and returns the parent
func (d *decision) Backup(player string, score float64) *decision {
	d.Lock()
	defer d.Unlock()

	if d.parent != nil { // Non-root node
		d.reverseLoss()
	}

	if d.mover == player {
		d.rewards += score
	} else {
		d.rewards -= score
	}
	d.visits++

	return d.parent
}

func (d *decision) reverseLoss() {
	d.rewards -= Loss
	d.visits--
}

func (d *decision) Visits() float64 {
	d.RLock()
	defer d.RUnlock()

	return d.visits
}

// Policy returns the visit distribution over explored moves
func (d *decision) Policy() map[game.Move]float64 {
	d.RLock()
	defer d.RUnlock()

	total := 0.0
	visits := make([]float64, len(d.children))
	for i, child := range d.children {
		visits[i] = child.Visits()
		total += visits[i]
	}

	policy := make(map[game.Move]float64, len(d.children))
	for i, move := range d.explored {
		if total > 0 {
			policy[move] = visits[i] / total
		} else {
			policy[move] = 1 / float64(len(d.explored))
		}
	}
	return policy
}
