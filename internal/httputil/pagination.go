package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/metagrid/directory/internal/store"
)

// ParsePagination parses the page_num and per_page query parameters.
// Pages are 1-based; per_page defaults to 20 and cannot exceed 100.
func ParsePagination(c *gin.Context) (store.Pagination, error) {
	pageStr := c.DefaultQuery("page_num", "1")
	page, err := strconv.ParseInt(pageStr, 10, 64)
	if err != nil || page < 1 {
		return store.Pagination{}, fmt.Errorf("invalid page_num parameter: must be a positive integer")
	}

	perPageStr := c.DefaultQuery("per_page", "20")
	perPage, err := strconv.ParseInt(perPageStr, 10, 64)
	if err != nil || perPage < 1 || perPage > 100 {
		return store.Pagination{}, fmt.Errorf("invalid per_page parameter: must be between 1 and 100")
	}

	return store.Pagination{PageNum: page, PerPage: perPage}, nil
}
