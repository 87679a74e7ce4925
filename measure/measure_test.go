package measure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.sr.ht/~whereswaldon/chartview/geom"
)

func TestApprox(t *testing.T) {
	var m Approx
	require.Equal(t, geom.Size{}, m.MeasureText("", Font{Size: 10}))
	require.Equal(t, geom.Size{}, m.MeasureText("abc", Font{}))

	s := m.MeasureText("héllo", Font{Size: 10})
	require.InDelta(t, 30, s.Width, 1e-4)
	require.InDelta(t, 12, s.Height, 1e-4)

	bold := m.MeasureText("héllo", Font{Size: 10, Bold: true})
	require.Greater(t, bold.Width, s.Width)
}

func TestShaper(t *testing.T) {
	s, err := NewShaper(ShaperOptions{})
	require.NoError(t, err)
	defer s.Close()

	f := Font{Size: 12}
	short := s.MeasureText("1", f)
	long := s.MeasureText("1000000", f)
	require.Greater(t, short.Width, float32(0))
	require.Greater(t, short.Height, float32(0))
	require.Greater(t, long.Width, short.Width)
	require.Equal(t, short.Height, long.Height)

	again := s.MeasureText("1000000", f)
	require.Equal(t, long, again)

	bigger := s.MeasureText("1000000", Font{Size: 24})
	require.Greater(t, bigger.Width, long.Width)
	require.Equal(t, geom.Size{}, s.MeasureText("", f))
}
