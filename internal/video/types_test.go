package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRect_Valid(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"default timestamp box", Rect{0, 0, 150, 40}, true},
		{"empty rect", Rect{10, 10, 10, 10}, true},
		{"negative origin", Rect{-1, 0, 10, 10}, false},
		{"inverted x", Rect{20, 0, 10, 10}, false},
		{"inverted y", Rect{0, 20, 10, 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Valid())
		})
	}
}

func TestRect_ClampAndArea(t *testing.T) {
	r := Rect{0, 0, 150, 40}.Clamp(100, 30)
	assert.Equal(t, Rect{0, 0, 100, 30}, r)
	assert.Equal(t, 3000, r.Area())

	assert.Equal(t, 0, Rect{5, 5, 1, 1}.Area())
	assert.True(t, r.Contains(0, 0))
	assert.False(t, r.Contains(100, 0))
}

func TestFrame_FillAndClone(t *testing.T) {
	f := NewFrame(4, 2)
	f.Fill(Rect{1, 0, 3, 1}, 1, 2, 3)

	c := f.Clone()
	assert.Equal(t, f.Pix, c.Pix)
	assert.Equal(t, []byte{1, 2, 3}, c.Pix[3:6])
	assert.Equal(t, []byte{0, 0, 0}, c.Pix[0:3])

	c.Pix[0] = 9
	assert.Equal(t, byte(0), f.Pix[0])
	assert.Equal(t, FrameSize(4, 2), len(f.Pix))
}
