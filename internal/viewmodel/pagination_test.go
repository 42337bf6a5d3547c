package viewmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 6))
	assert.Equal(t, 1, PageCount(1, 6))
	assert.Equal(t, 1, PageCount(6, 6))
	assert.Equal(t, 2, PageCount(7, 6))
	assert.Equal(t, 2, PageCount(7, 0), "non-positive size uses PageSize")
}

func TestPaginate(t *testing.T) {
	items := seq(14)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, Paginate(items, 1, 6))
	assert.Equal(t, []int{6, 7, 8, 9, 10, 11}, Paginate(items, 2, 6))
	assert.Equal(t, []int{12, 13}, Paginate(items, 3, 6))

	t.Run("beyond page count is empty", func(t *testing.T) {
		assert.Empty(t, Paginate(items, 4, 6))
		assert.NotNil(t, Paginate(items, 4, 6))
	})

	t.Run("page below one is empty", func(t *testing.T) {
		assert.Empty(t, Paginate(items, 0, 6))
		assert.Empty(t, Paginate(items, -3, 6))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Paginate([]int{}, 1, 6))
	})

	t.Run("huge page is empty", func(t *testing.T) {
		const huge = 2305843009213693954
		assert.Empty(t, Paginate([]int{1, 2, 3}, huge, PageSize))
		assert.Empty(t, Paginate(items, math.MaxInt, 6))

		var cs Cursors
		cs.For(SubsetOpen).Set(huge)
		pg := NewPage(items, cs.For(SubsetOpen).Page())
		assert.Empty(t, pg.Items)
		assert.Equal(t, huge, pg.Page)
	})
}

func TestPaginate_ConcatenationReconstructs(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for size := 1; size <= 7; size++ {
			items := seq(n)
			var got []int
			for k := 1; k <= PageCount(n, size); k++ {
				got = append(got, Paginate(items, k, size)...)
			}
			if n == 0 {
				assert.Empty(t, got)
				continue
			}
			assert.Equal(t, items, got, "n=%d size=%d", n, size)
			assert.Empty(t, Paginate(items, PageCount(n, size)+1, size))
		}
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage(seq(13), 3)
	assert.Equal(t, []int{12}, p.Items)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 13, p.Total)
	assert.Equal(t, PageSize, p.PageSize)
}
