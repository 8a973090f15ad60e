package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// #region side
// Side labels the two options of an intertemporal choice.
type Side string

const (
	SS Side = "SS" // smaller-sooner
	LL Side = "LL" // larger-later
)

// ParseSide accepts "SS"/"LL" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SS:
		return SS, nil
	case LL:
		return LL, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// #endregion side

// #region response
// SurveyBlock is the block id recorded for survey answers.
const SurveyBlock = "survey"

// Placeholder fills the LL column of survey rows.
const Placeholder = "-"

// Response is one answered question. Values are never mutated after append.
type Response struct {
	Block    string  `json:"block"`
	Item     int     `json:"item"` // 1-based
	Choice   string  `json:"choice"`
	SSAmount int64   `json:"ss_amount,omitempty"`
	LLAmount int64   `json:"ll_amount,omitempty"`
	Question string  `json:"question,omitempty"` // survey items only
	RTSec    float64 `json:"rt_sec"`
}

// IsSurvey reports whether the response answers a survey item.
func (r Response) IsSurvey() bool {
	return r.Block == SurveyBlock
}

// RoundRT rounds a duration to milliseconds, expressed in seconds, never negative.
func RoundRT(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return math.Round(d.Seconds()*1000) / 1000
}

// #endregion response

// #region rows
// TimestampLayout is the format of the shared submission timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the column layout of the destination sheet.
var Header = []string{"participant", "task", "item", "choice", "ss_amount", "ll_amount", "rt_sec", "submitted_at"}

// Row converts a response to sheet cells.
func (r Response) Row(participant, submittedAt string) []string {
	ss := strconv.FormatInt(r.SSAmount, 10)
	ll := strconv.FormatInt(r.LLAmount, 10)
	if r.IsSurvey() {
		ss = r.Question
		ll = Placeholder
	}
	return []string{
		participant,
		r.Block,
		strconv.Itoa(r.Item),
		r.Choice,
		ss,
		ll,
		strconv.FormatFloat(r.RTSec, 'f', -1, 64),
		submittedAt,
	}
}

// Rows converts responses in order, all tagged with one submission stamp.
func Rows(participant, submittedAt string, responses []Response) [][]string {
	rows := make([][]string, 0, len(responses))
	for _, r := range responses {
		rows = append(rows, r.Row(participant, submittedAt))
	}
	return rows
}

// #endregion rows
