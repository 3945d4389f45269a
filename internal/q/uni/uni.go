// Package uni measures display-column width of UTF-8 text for fixed-width
// terminal rendering. turnsieve only ever needs this for truncating a turn
// preview to a column budget (internal/report), so the API is scoped to
// that: plain string input, no East Asian Wide / emoji-width locale
// switches, no byte-slice variant.
package uni

import (
	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/mattn/go-runewidth"
)

// TextWidth returns the display width of s in terminal columns.
func TextWidth(s string) int {
	return runewidthCondition().StringWidth(s)
}

// Iterator walks s one grapheme cluster at a time, reporting each cluster's
// display width so a truncation routine never splits a multi-rune cluster.
type Iterator struct {
	iter *graphemes.Iterator[string]
	cond *runewidth.Condition
}

// NewGraphemeIterator returns a grapheme iterator over s.
func NewGraphemeIterator(s string) *Iterator {
	iter := graphemes.FromString(s)
	return &Iterator{iter: &iter, cond: runewidthCondition()}
}

func (it *Iterator) Next() bool {
	return it.iter.Next()
}

func (it *Iterator) Value() string {
	return it.iter.Value()
}

// TextWidth returns the display width of the current grapheme cluster.
func (it *Iterator) TextWidth() int {
	return it.cond.StringWidth(it.iter.Value())
}

func runewidthCondition() *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	cond.StrictEmojiNeutral = true
	return cond
}
