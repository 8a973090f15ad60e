package catalog

// #region kind
// Kind is the semantic framing of a choice task.
type Kind string

const (
	KindGain          Kind = "gain"
	KindLoss          Kind = "loss"
	KindPresentBias   Kind = "present_bias"
	KindSubadditivity Kind = "subadditivity"
	KindSpeedup       Kind = "speedup"
	KindBonus         Kind = "bonus"
)

func (k Kind) valid() bool {
	switch k {
	case KindGain, KindLoss, KindPresentBias, KindSubadditivity, KindSpeedup, KindBonus:
		return true
	}
	return false
}

// #endregion kind

// #region polarity
// Polarity is the direction an SS choice moves the staircase index.
type Polarity string

const (
	PolarityDirect   Polarity = "direct"   // SS moves the index up
	PolarityInverted Polarity = "inverted" // SS moves the index down
)

// DefaultPolarity returns inverted for loss framing and direct otherwise.
func DefaultPolarity(k Kind) Polarity {
	if k == KindLoss {
		return PolarityInverted
	}
	return PolarityDirect
}

// #endregion polarity

// #region task
// AmountCount is the number of candidate later-amounts per task.
const AmountCount = 5

// Task is one experimental condition with its ordered candidate later-amounts.
type Task struct {
	ID       string
	Base     int64
	Amounts  [AmountCount]int64
	Kind     Kind
	Polarity Polarity
}

// #endregion task

// #region anomaly
// LaterRule says how an anomaly item derives its later-amount.
type LaterRule string

const (
	LaterIndifference LaterRule = "indifference" // later = indifference value
	LaterDoubledGap   LaterRule = "doubled_gap"  // later = base + 2*(indifference-base)
	LaterFixed        LaterRule = "fixed"        // later = Later literal
)

// AnomalyItem is one hand-specified question of the anomaly block.
type AnomalyItem struct {
	ID    string
	Kind  Kind
	Base  int64
	Rule  LaterRule
	Later int64 // only for LaterFixed
}

// #endregion anomaly

// #region staircase
// StaircaseDesign configures the adaptive protocol.
type StaircaseDesign struct {
	TaskIDs    []string
	StartIndex int
	Steps      int
}

// #endregion staircase

// #region survey
// AnswerType is the input form of a survey item.
type AnswerType string

const (
	AnswerNumber AnswerType = "number"
	AnswerSelect AnswerType = "select"
	AnswerSlider AnswerType = "slider"
)

// SurveyItem is a localized demographic question.
type SurveyItem struct {
	ID      string
	Type    AnswerType
	Text    string
	Options []string
	Min     int64
	Max     int64
	Default int64
}

// #endregion survey
