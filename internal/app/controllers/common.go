// Package controllers handles HTTP request handling
package controllers

import (
	"time"

	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/middleware"
	"github.com/communitylink/communitylink/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// listFilter binds the shared category/location/dateFrom query. The API is strict
// about unknown categories.
func listFilter(c *gin.Context) (dto.ListFilter, bool) {
	var q dto.ListFilterQuery
	if !middleware.BindQuery(c, &q) {
		return dto.ListFilter{}, false
	}
	f, err := helpers.ParseListFilter(q, true, time.Local)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return dto.ListFilter{}, false
	}
	return f, true
}

// respond writes data in the success envelope with status, or the mapped error envelope
func respond(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(status, dto.NewSuccessResponse(data))
}
