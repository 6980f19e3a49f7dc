package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
	"github.com/growtradenfts/platform/internal/nft"
	"github.com/shopspring/decimal"
)

// NFTHandler exposes inventory administration.
type NFTHandler struct {
	engine *nft.Engine
}

// NewNFTHandler constructs an NFTHandler.
func NewNFTHandler(svc *core.Services) *NFTHandler {
	return &NFTHandler{engine: svc.NFTs}
}

// List pages through NFTs filtered by status and batch, alongside every batch.
func (h *NFTHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	admin := core.Admin(c)
	filter := nft.ListFilter{
		Status:   strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Batch:    core.QueryInt(c, "batch", 0),
		Page:     core.QueryInt(c, "page", 1),
		PageSize: core.QueryInt(c, "page_size", 0),
	}
	rows, total, errList := h.engine.ListNFTs(ctx, admin, filter)
	if errList != nil {
		apierr.Write(c, errList)
		return
	}
	batches, errBatches := h.engine.ListBatches(ctx, admin)
	if errBatches != nil {
		apierr.Write(c, errBatches)
		return
	}
	renderedBatches := make([]gin.H, 0, len(batches))
	for i := range batches {
		renderedBatches = append(renderedBatches, core.Batch(&batches[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"nfts":    core.NFTs(rows),
		"total":   total,
		"batches": renderedBatches,
	})
}

// createBatchRequest defines the request body for a new batch. Zero values
// fall back to the platform defaults.
type createBatchRequest struct {
	TotalNFTs int             `json:"total_nfts"`
	BasePrice decimal.Decimal `json:"base_price"`
}

// CreateBatch appends a batch after the last one.
func (h *NFTHandler) CreateBatch(c *gin.Context) {
	var body createBatchRequest
	if c.Request.ContentLength != 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			apierr.Bad(c, "invalid json")
			return
		}
	}
	batch, errCreate := h.engine.CreateBatch(c.Request.Context(), core.Admin(c), body.TotalNFTs, body.BasePrice)
	if errCreate != nil {
		apierr.Write(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"batch": core.Batch(batch)})
}

// UnlockBatch makes the batch the only active one.
func (h *NFTHandler) UnlockBatch(c *gin.Context) {
	number, errParse := strconv.Atoi(strings.TrimSpace(c.Param("number")))
	if errParse != nil || number <= 0 {
		apierr.Bad(c, "invalid batch number")
		return
	}
	batch, errUnlock := h.engine.ForceUnlock(c.Request.Context(), core.Admin(c), number)
	if errUnlock != nil {
		apierr.Write(c, errUnlock)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": core.Batch(batch)})
}
