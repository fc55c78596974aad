package ramp

import "github.com/gin-gonic/gin"

type IHandler interface {
	Start(c *gin.Context)
	Get(c *gin.Context)
	Recover(c *gin.Context)
	Abandon(c *gin.Context)
	SubmitUserTransaction(c *gin.Context)
}
