package searcher

// Hyperparameters for MCTS

const CSquared = 2.0 // Exploration constant

const Win = 1.0   // Reward for winning outcome
const Loss = -Win // Reward for loss outcome (negate from opponent perspective)
const Draw = 0.0

// MaxCutoff plays rollouts until the game is over
const MaxCutoff = int(^uint(0) >> 1)
