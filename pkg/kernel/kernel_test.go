package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasScope(t *testing.T) {
	tests := []struct {
		name   string
		scopes []string
		want   bool
	}{
		{"exact", []string{"messages:admin"}, true},
		{"wildcard", []string{"*"}, true},
		{"prefix wildcard", []string{"messages:*"}, true},
		{"other prefix", []string{"orders:*"}, false},
		{"prefix without separator", []string{"message:*"}, false},
		{"none", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := &AuthContext{Scopes: tt.scopes}
			assert.Equal(t, tt.want, ac.HasScope("messages:admin"))
		})
	}
}

func TestCurrentStore(t *testing.T) {
	_, ok := CurrentStore(context.Background())
	assert.False(t, ok)

	_, ok = CurrentStore(WithCurrentStore(context.Background(), 0))
	assert.False(t, ok)

	id, ok := CurrentStore(WithCurrentStore(context.Background(), 7))
	assert.True(t, ok)
	assert.Equal(t, StoreID(7), id)
}

func TestPaginate(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	p := Paginate(all, PaginationOptions{Page: 2, PageSize: 2})
	assert.Equal(t, []int{3, 4}, p.Items)
	assert.Equal(t, 3, p.Page.Pages)
	assert.True(t, p.HasNext())
	assert.True(t, p.HasPrevious())

	p = Paginate(all, PaginationOptions{Page: 9, PageSize: 2})
	assert.True(t, p.Empty)
	assert.Equal(t, []int{}, p.Items)

	p = Paginate(all, PaginationOptions{})
	assert.Equal(t, DefaultPageSize, p.Page.Size)
	assert.Len(t, p.Items, 5)
}
