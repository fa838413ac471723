package convert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsConversion(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: "memo.dss", want: true},
		{name: "memo.DS2", want: true},
		{name: "a/b/memo.dvf", want: true},
		{name: "memo.msv", want: true},
		{name: "memo.svd", want: true},
		{name: "memo.wav", want: false},
		{name: "memo.mp3", want: false},
		{name: "memo", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsConversion(tt.name))
		})
	}
}

func newTestConverter() *Converter {
	res := NewConverter()
	res.wait = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return res
}

func TestConvert(t *testing.T) {
	c := newTestConverter()
	var got []int
	err := c.Convert(context.Background(), "memo.dss", func(p int) { got = append(got, p) })
	require.Nil(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 0, got[0])
	assert.Equal(t, 100, got[len(got)-1])
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
}

func TestConvert_NilProgress(t *testing.T) {
	c := newTestConverter()
	assert.Nil(t, c.Convert(context.Background(), "memo.dss", nil))
}

func TestConvert_Fails(t *testing.T) {
	c := newTestConverter()
	assert.NotNil(t, c.Convert(context.Background(), "", nil))
	assert.NotNil(t, c.Convert(context.Background(), "memo.wav", nil))
}

func TestConvert_Cancel(t *testing.T) {
	c := NewConverter()
	ctx, cancelF := context.WithCancel(context.Background())
	cancelF()
	err := c.Convert(ctx, "memo.dss", nil)
	assert.NotNil(t, err)
}
