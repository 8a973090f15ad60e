package sheet

import (
	"context"
	"errors"
)

// #region sheet
// Sheet is a row-oriented destination for submitted responses.
type Sheet interface {
	// AppendHeaderIfAbsent writes header as the first row when the sheet is
	// empty and reports whether it did. Not atomic across concurrent writers.
	AppendHeaderIfAbsent(ctx context.Context, header []string) (bool, error)
	// AppendRows writes rows as one batch in order.
	AppendRows(ctx context.Context, rows [][]string) error
	// Rows returns every row, header included.
	Rows(ctx context.Context) ([][]string, error)
}

// ErrUnavailable reports that the sheet could not be reached.
var ErrUnavailable = errors.New("sheet unavailable")

// #endregion sheet
