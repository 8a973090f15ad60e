package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
)

// #region record
// record stamps r with the time since the current question was shown, appends
// it and restarts the question timer. Caller holds s.mu.
func (m *Machine) record(s *Session, r record.Response) record.Response {
	now := m.now()
	r.RTSec = record.RoundRT(now.Sub(s.questionStartedAt))
	s.records = append(s.records, r)
	s.questionStartedAt = now
	return r
}

// #endregion record

// #region answers
// NormalizeAnswer validates raw input against item and returns the stored form.
// Numbers and slider values must be integers within [Min, Max]; digit grouping
// commas are accepted. Select answers must match an option, or be its 1-based
// position.
func NormalizeAnswer(item catalog.SurveyItem, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidAnswer, item.ID)
	}

	switch item.Type {
	case catalog.AnswerNumber, catalog.AnswerSlider:
		n, err := strconv.ParseInt(strings.ReplaceAll(v, ",", ""), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s wants a whole number, got %q", ErrInvalidAnswer, item.ID, raw)
		}
		if n < item.Min || n > item.Max {
			return "", fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidAnswer, item.ID, item.Min, item.Max)
		}
		return strconv.FormatInt(n, 10), nil

	case catalog.AnswerSelect:
		for _, opt := range item.Options {
			if strings.EqualFold(opt, v) {
				return opt, nil
			}
		}
		if i, err := strconv.Atoi(v); err == nil && i >= 1 && i <= len(item.Options) {
			return item.Options[i-1], nil
		}
		return "", fmt.Errorf("%w: %s has no option %q", ErrInvalidAnswer, item.ID, raw)
	}
	return "", fmt.Errorf("%w: %s has unknown type %q", ErrInvalidAnswer, item.ID, item.Type)
}

// #endregion answers
