package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paginationContext(t *testing.T, query string) *gin.Context {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return c
}

func TestParsePagination_Defaults(t *testing.T) {
	pager, err := ParsePagination(paginationContext(t, ""))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pager.PageNum)
	assert.Equal(t, int64(20), pager.PerPage)
}

func TestParsePagination_CustomValues(t *testing.T) {
	pager, err := ParsePagination(paginationContext(t, "page_num=3&per_page=50"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), pager.PageNum)
	assert.Equal(t, int64(50), pager.PerPage)
}

func TestParsePagination_InvalidPageNum(t *testing.T) {
	_, err := ParsePagination(paginationContext(t, "page_num=0"))
	assert.Error(t, err)

	_, err = ParsePagination(paginationContext(t, "page_num=abc"))
	assert.Error(t, err)
}

func TestParsePagination_PerPageBounds(t *testing.T) {
	_, err := ParsePagination(paginationContext(t, "per_page=0"))
	assert.Error(t, err)

	_, err = ParsePagination(paginationContext(t, "per_page=101"))
	assert.Error(t, err)

	pager, err := ParsePagination(paginationContext(t, "per_page=100"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), pager.PerPage)
}
