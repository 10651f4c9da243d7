// README: Bid handlers: place, withdraw, accept, reject, list.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpmiddleware "kurier/internal/http/middleware"
	"kurier/internal/modules/bid"
	"kurier/internal/types"
)

type BidHandler struct {
	bids *bid.Service
}

func NewBidHandler(svc *bid.Service) *BidHandler {
	return &BidHandler{bids: svc}
}

type placeBidReq struct {
	OrderID     string `json:"order_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Message     string `json:"message"`
}

func (h *BidHandler) Place(c *gin.Context) {
	var req placeBidReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	id, err := h.bids.Place(c.Request.Context(), actor, bid.PlaceCommand{
		OrderID: types.ID(req.OrderID),
		Amount:  types.EUR(req.AmountCents),
		Message: req.Message,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"bid_id": id, "status": bid.StatusPending})
}

func (h *BidHandler) Withdraw(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	err := h.bids.Withdraw(c.Request.Context(), actor, bid.WithdrawCommand{BidID: types.ID(c.Param("id"))})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": bid.StatusWithdrawn})
}

func (h *BidHandler) Accept(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	err := h.bids.Accept(c.Request.Context(), actor, bid.AcceptCommand{BidID: types.ID(c.Param("id"))})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": bid.StatusAccepted})
}

func (h *BidHandler) Reject(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	err := h.bids.Reject(c.Request.Context(), actor, bid.RejectCommand{BidID: types.ID(c.Param("id"))})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": bid.StatusRejected})
}

func (h *BidHandler) ListByOrder(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	bids, err := h.bids.ListByOrder(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewBids(bids))
}

func (h *BidHandler) ListByContractor(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	bids, err := h.bids.ListByContractor(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewBids(bids))
}

func viewBids(bids []bid.Bid) []gin.H {
	out := make([]gin.H, 0, len(bids))
	for _, b := range bids {
		out = append(out, gin.H{
			"bid_id":        b.ID,
			"order_id":      b.OrderID,
			"contractor_id": b.ContractorID,
			"amount_cents":  b.Amount.Amount,
			"message":       b.Message,
			"status":        b.Status,
			"created_at":    b.CreatedAt,
		})
	}
	return out
}
