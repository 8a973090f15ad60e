package protocol

import (
	"errors"

	"github.com/danielpatrickdp/choice-experiment/internal/question"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
)

// #region name
// Name selects an experiment design.
type Name string

const (
	NameFixed     Name = "fixed"     // 6 tasks x 5 fixed items
	NameStaircase Name = "staircase" // 3 adaptive phases x 3 steps, then 4 anomaly items
)

// ErrUnknownProtocol is returned for a Name that is neither fixed nor staircase.
var ErrUnknownProtocol = errors.New("unknown protocol")

// #endregion name

// #region block
// Block is one phase of choice questions.
type Block struct {
	ID       string
	Items    int
	Adaptive bool
}

// #endregion block

// #region cursor
// Cursor is the protocol-owned part of session state.
type Cursor struct {
	Block           int // index into Blocks(); == len(Blocks()) once exhausted
	Step            int // 0-based within the block
	Index           int // staircase candidate index
	Indifference    int64
	HasIndifference bool
}

// #endregion cursor

// #region protocol
// Protocol sequences the choice phases of one experiment design.
// Question must only be called with cursors the protocol itself produced.
type Protocol interface {
	Name() Name
	Blocks() []Block
	Start() Cursor
	Question(c Cursor) question.Question
	Advance(c Cursor, side record.Side) Cursor
}

// Done reports whether c has moved past the last block of p.
func Done(p Protocol, c Cursor) bool {
	return c.Block >= len(p.Blocks())
}

// TotalItems counts the choice questions of p.
func TotalItems(p Protocol) int {
	n := 0
	for _, b := range p.Blocks() {
		n += b.Items
	}
	return n
}

// #endregion protocol
