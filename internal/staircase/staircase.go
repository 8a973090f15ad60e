package staircase

import (
	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
)

// #region bounds
const (
	MinIndex = 0
	MaxIndex = catalog.AmountCount - 1
)

// Clamp holds idx within [MinIndex, MaxIndex].
func Clamp(idx int) int {
	if idx < MinIndex {
		return MinIndex
	}
	if idx > MaxIndex {
		return MaxIndex
	}
	return idx
}

// #endregion bounds

// #region next-index
// NextIndex returns the candidate index for the next titration step.
// Under direct polarity SS raises the offered later-amount and LL lowers it;
// inverted polarity swaps the two. The result is clamped, never wrapped.
func NextIndex(p catalog.Polarity, side record.Side, idx int) int {
	step := 1
	if side == record.LL {
		step = -1
	}
	if p == catalog.PolarityInverted {
		step = -step
	}
	return Clamp(Clamp(idx) + step)
}

// #endregion next-index

// #region indifference
// Indifference estimates the indifference later-amount from the final titration
// step: the amount at the index just shown if LL was chosen, otherwise the
// amount one index below it.
func Indifference(amounts [catalog.AmountCount]int64, usedIdx int, side record.Side) int64 {
	if side == record.LL {
		return amounts[Clamp(usedIdx)]
	}
	return amounts[Clamp(usedIdx-1)]
}

// #endregion indifference
