package uni

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextWidth(t *testing.T) {
	assert.Equal(t, 4, TextWidth("áb世"))
	assert.Equal(t, 0, TextWidth(""))
}

func TestGraphemeIterator(t *testing.T) {
	val := "áb世"

	iter := NewGraphemeIterator(val)

	var values []string
	var widths []int
	for iter.Next() {
		values = append(values, iter.Value())
		widths = append(widths, iter.TextWidth())
	}

	assert.Equal(t, []string{"á", "b", "世"}, values)
	assert.Equal(t, []int{1, 1, 2}, widths)
}

func TestGraphemeIteratorEmpty(t *testing.T) {
	iter := NewGraphemeIterator("")
	assert.False(t, iter.Next())
}
