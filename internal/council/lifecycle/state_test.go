package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	st := New(true)
	assert.True(t, st.IsForeground())

	var seen []bool
	cancel := st.OnChange(func(fg bool) { seen = append(seen, fg) })

	st.SetForeground(true)
	assert.Empty(t, seen, "no transition, no callback")

	st.SetForeground(false)
	st.SetForeground(true)
	assert.Equal(t, []bool{false, true}, seen)
	assert.True(t, st.IsForeground())

	cancel()
	st.SetForeground(false)
	assert.Len(t, seen, 2)
	assert.False(t, st.IsForeground())
}
