package utils_test

import (
	"math"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"emrSocket/internal/utils"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		size     int
		wantPage int
		wantSize int
	}{
		{name: "defaults", page: 0, size: 0, wantPage: 1, wantSize: 20},
		{name: "negative", page: -3, size: -1, wantPage: 1, wantSize: 20},
		{name: "in range", page: 4, size: 50, wantPage: 4, wantSize: 50},
		{name: "size capped", page: 2, size: 5000, wantPage: 2, wantSize: 100},
		{name: "huge page capped", page: math.MaxInt, size: 100, wantPage: 10000, wantSize: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, size := utils.NormalizePage(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantSize, size)
			assert.GreaterOrEqual(t, (page-1)*size, 0)
		})
	}
}

func TestGetPagination_ClampsHugePage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest("GET", "/notifications?page="+strconv.Itoa(math.MaxInt)+"&size=100", nil)

	page, size := utils.GetPagination(ctx)
	assert.Equal(t, 10000, page)
	assert.Equal(t, 100, size)
	assert.Equal(t, 999900, (page-1)*size)
}

func TestGetPagination_BadInput(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest("GET", "/notifications?page=abc&size=-4", nil)

	page, size := utils.GetPagination(ctx)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
}
