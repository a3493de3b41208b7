package escrow

import "github.com/gin-gonic/gin"

type IHandler interface {
	GetTransfers(c *gin.Context)
	ListSnapshots(c *gin.Context)
	ListChains(c *gin.Context)
	CreateSession(c *gin.Context)
	GetSession(c *gin.Context)
	SelectEscrow(c *gin.Context)
	LoadMore(c *gin.Context)
	RefreshSession(c *gin.Context)
}
