package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Page
		want Page
	}{
		{"zero uses default", Page{}, Page{Limit: DefaultLimit}},
		{"too large is clamped", Page{Limit: 10_000, Offset: 5}, Page{Limit: MaxLimit, Offset: 5}},
		{"negative offset", Page{Limit: 10, Offset: -1}, Page{Limit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	res := Window(items, Page{Limit: 2, Offset: 1})
	assert.Equal(t, []int{2, 3}, res.Items)
	assert.Equal(t, int64(5), res.TotalCount)

	res = Window(items, Page{Limit: 10, Offset: 4})
	assert.Equal(t, []int{5}, res.Items)

	res = Window(items, Page{Limit: 10, Offset: 9})
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
}

func TestHookRegistry_StopsOnError(t *testing.T) {
	r := NewHookRegistry[*int]()
	calls := 0
	r.On(BeforeCreate, func(context.Context, *int) error { calls++; return errors.New("stop") })
	r.On(BeforeCreate, func(context.Context, *int) error { calls++; return nil })

	v := 1
	require.Error(t, r.Run(context.Background(), BeforeCreate, &v))
	assert.Equal(t, 1, calls)
	assert.NoError(t, r.Run(context.Background(), AfterCreate, &v))
}
