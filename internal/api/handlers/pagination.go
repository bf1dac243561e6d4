package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxLimit = 100

type page struct {
	Page   int
	Limit  int
	Offset int
}

func pageParams(c *gin.Context) page {
	p, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if p < 1 {
		p = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = 20
	}
	return page{Page: p, Limit: limit, Offset: (p - 1) * limit}
}

func paginated(data interface{}, p page, total int64) gin.H {
	return gin.H{
		"data": data,
		"pagination": gin.H{
			"page":  p.Page,
			"limit": p.Limit,
			"total": total,
		},
	}
}
