package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// keeps (page-1)*size far below the int range
	maxPage = 10000
)

// NormalizePage clamps page and size into the ranges every listing accepts.
func NormalizePage(page, size int) (int, int) {
	switch {
	case page <= 0:
		page = 1
	case page > maxPage:
		page = maxPage
	}
	switch {
	case size > maxPageSize:
		size = maxPageSize
	case size <= 0:
		size = defaultPageSize
	}
	return page, size
}

func Paginate(page, size int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		page, size := NormalizePage(page, size)
		return db.Offset((page - 1) * size).Limit(size)
	}
}

// GetPagination reads page and size query parameters, falling back to sane defaults.
func GetPagination(ctx *gin.Context) (int, int) {
	page, err := strconv.Atoi(ctx.Query("page"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(ctx.Query("size"))
	if err != nil {
		size = defaultPageSize
	}
	return NormalizePage(page, size)
}
