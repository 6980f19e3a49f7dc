package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
	"github.com/growtradenfts/platform/internal/nft"
)

// NFTFrontHandler serves the marketplace and member NFT endpoints.
type NFTFrontHandler struct {
	engine *nft.Engine
}

// NewNFTFrontHandler constructs an NFTFrontHandler.
func NewNFTFrontHandler(svc *core.Services) *NFTFrontHandler {
	return &NFTFrontHandler{engine: svc.NFTs}
}

// Marketplace returns the active batch and its listed NFTs.
func (h *NFTFrontHandler) Marketplace(c *gin.Context) {
	market, errMarket := h.engine.Marketplace(c.Request.Context())
	if errMarket != nil {
		apierr.Write(c, errMarket)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"batch": core.Batch(market.Batch),
		"nfts":  core.NFTs(market.NFTs),
	})
}

// Buy purchases one NFT from the active batch.
func (h *NFTFrontHandler) Buy(c *gin.Context) {
	res, errBuy := h.engine.Purchase(c.Request.Context(), core.UserID(c))
	if errBuy != nil {
		apierr.Write(c, errBuy)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"nft":            core.NFT(res.NFT),
		"balance":        res.User.Balance,
		"batch":          core.Batch(res.Batch),
		"unlocked_batch": core.Batch(res.UnlockedBatch),
	})
}

// Sell resells a held NFT.
func (h *NFTFrontHandler) Sell(c *gin.Context) {
	nftID := strings.TrimSpace(c.Param("nft_id"))
	if nftID == "" {
		apierr.Bad(c, "invalid nft id")
		return
	}
	res, errSell := h.engine.Sell(c.Request.Context(), core.UserID(c), nftID)
	if errSell != nil {
		apierr.Write(c, errSell)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sold":    core.NFT(res.Sold),
		"minted":  core.NFTs(res.Minted),
		"profit":  res.Profit,
		"balance": res.User.Balance,
	})
}

// Mine lists the caller's NFTs with holding stats.
func (h *NFTFrontHandler) Mine(c *gin.Context) {
	rows, holdings, errList := h.engine.MyNFTs(c.Request.Context(), core.UserID(c))
	if errList != nil {
		apierr.Write(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"nfts":  core.NFTs(rows),
		"stats": holdings,
	})
}
