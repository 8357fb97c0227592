package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationParams(t *testing.T) {
	tests := []struct {
		params     PaginationParams
		wantLimit  int
		wantOffset int
	}{
		{PaginationParams{Page: 1, PageSize: 20}, 20, 0},
		{PaginationParams{Page: 3, PageSize: 10}, 10, 20},
		{PaginationParams{Page: 0, PageSize: 10}, 10, 0},
		{PaginationParams{Page: 2, PageSize: 0}, 1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantLimit, tt.params.Limit())
		assert.Equal(t, tt.wantOffset, tt.params.Offset())
	}
}
