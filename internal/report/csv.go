package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/codalotl/turnsieve/internal/scorer"
)

// WriteScoresCSV exports every scored turn's index, score, and token count
// as CSV (lib/formatter.py's write_scores_csv). Plain encoding/csv is used
// here rather than a third-party library: no example repo in the corpus
// carries one, and the stdlib writer already handles quoting/escaping
// correctly for this flat record shape.
func WriteScoresCSV(w io.Writer, scored []scorer.Scored) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"index", "kind", "score", "tokens"}); err != nil {
		return err
	}
	for _, s := range scored {
		row := []string{
			strconv.Itoa(s.Turn.Index),
			s.Turn.Kind.String(),
			strconv.FormatFloat(s.Score, 'f', 6, 64),
			strconv.Itoa(s.Tokens),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}
