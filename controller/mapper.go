package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func pathParamInt(c *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return value, true
}
