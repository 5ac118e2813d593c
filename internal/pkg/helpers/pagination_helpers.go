package helpers

import (
	"strconv"

	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultPage     = 1
)

// clampSize falls back to DefaultPageSize for sizes outside 1..MaxPageSize
func clampSize(size int) int {
	if size < 1 || size > MaxPageSize {
		return DefaultPageSize
	}
	return size
}

func clampPage(page int) int {
	if page < 1 {
		return DefaultPage
	}
	return page
}

// CalculateOffsetLimit turns a 1-based page and a page size into SQL offset and limit
func CalculateOffsetLimit(page, size int) (offset int, limit int) {
	limit = clampSize(size)
	return (clampPage(page) - 1) * limit, limit
}

// NewPaginationInfo describes one page of totalItems. An empty result still has
// one page, and the current page is capped at the last one.
func NewPaginationInfo(totalItems int64, page, size int) dto.PaginationInfo {
	if size < 1 {
		size = DefaultPageSize
	}
	page = clampPage(page)

	pages := int((totalItems + int64(size) - 1) / int64(size))
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}

	return dto.PaginationInfo{
		CurrentPage: page,
		TotalPages:  pages,
		PageSize:    size,
		TotalItems:  totalItems,
	}
}

// ParsePaginationParams reads the page and size query parameters
func ParsePaginationParams(c *gin.Context) (page, size int) {
	size, err := strconv.Atoi(c.Query("size"))
	if err != nil {
		size = DefaultPageSize
	}
	return ParsePageParam(c, "page"), clampSize(size)
}

// ParsePageParam reads a 1-based page number from the query parameter key.
// Views with two independent lists use their own keys (pagePart, pageOrg).
func ParsePageParam(c *gin.Context, key string) int {
	page, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return DefaultPage
	}
	return clampPage(page)
}
