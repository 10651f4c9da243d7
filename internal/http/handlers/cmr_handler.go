// README: CMR handlers: consignment setup, pickup signing, stop confirmation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpmiddleware "kurier/internal/http/middleware"
	"kurier/internal/modules/cmr"
	"kurier/internal/types"
)

type CMRHandler struct {
	cmr *cmr.Service
}

func NewCMRHandler(svc *cmr.Service) *CMRHandler {
	return &CMRHandler{cmr: svc}
}

type cmrStopReq struct {
	ConsigneeName    string `json:"consignee_name" binding:"required"`
	ConsigneeAddress string `json:"consignee_address"`
}

type initCMRReq struct {
	SenderName              string       `json:"sender_name" binding:"required"`
	SenderAddress           string       `json:"sender_address"`
	CarrierName             string       `json:"carrier_name" binding:"required"`
	CarrierAddress          string       `json:"carrier_address"`
	GoodsDescription        string       `json:"goods_description"`
	Stops                   []cmrStopReq `json:"stops" binding:"required,min=1,dive"`
	CanShareSenderSignature bool         `json:"can_share_sender_signature"`
}

func (h *CMRHandler) Init(c *gin.Context) {
	var req initCMRReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	stops := make([]cmr.StopInfo, 0, len(req.Stops))
	for _, s := range req.Stops {
		stops = append(stops, cmr.StopInfo{ConsigneeName: s.ConsigneeName, ConsigneeAddress: s.ConsigneeAddress})
	}
	actor := httpmiddleware.ActorFrom(c)
	err := h.cmr.Init(c.Request.Context(), actor, cmr.InitCommand{
		OrderID:                 types.ID(c.Param("id")),
		SenderName:              req.SenderName,
		SenderAddress:           req.SenderAddress,
		CarrierName:             req.CarrierName,
		CarrierAddress:          req.CarrierAddress,
		GoodsDescription:        req.GoodsDescription,
		Stops:                   stops,
		CanShareSenderSignature: req.CanShareSenderSignature,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"stops": len(stops)})
}

type signPickupReq struct {
	SenderSigner     string `json:"sender_signer" binding:"required"`
	CarrierSigner    string `json:"carrier_signer" binding:"required"`
	PickupWaitingMin int    `json:"pickup_waiting_min" binding:"gte=0"`
}

func (h *CMRHandler) SignPickup(c *gin.Context) {
	var req signPickupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	err := h.cmr.SignPickup(c.Request.Context(), actor, cmr.SignPickupCommand{
		OrderID:          types.ID(c.Param("id")),
		SenderSigner:     req.SenderSigner,
		CarrierSigner:    req.CarrierSigner,
		PickupWaitingMin: req.PickupWaitingMin,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"stage": cmr.StageDelivery})
}

type submitStopReq struct {
	ConsigneeSigner    string `json:"consignee_signer"`
	NotHome            bool   `json:"not_home"`
	PhotoRef           string `json:"photo_ref"`
	DeliveryWaitingMin int    `json:"delivery_waiting_min" binding:"gte=0"`
	SenderSigner       string `json:"sender_signer"`
	CarrierSigner      string `json:"carrier_signer"`
}

func (h *CMRHandler) SubmitStop(c *gin.Context) {
	var req submitStopReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	orderID := types.ID(c.Param("id"))
	err := h.cmr.SubmitStop(c.Request.Context(), actor, cmr.SubmitStopCommand{
		OrderID: orderID,
		Proof: cmr.StopProof{
			ConsigneeSigner: req.ConsigneeSigner,
			NotHome:         req.NotHome,
			PhotoRef:        req.PhotoRef,
		},
		DeliveryWaitingMin: req.DeliveryWaitingMin,
		SenderSigner:       req.SenderSigner,
		CarrierSigner:      req.CarrierSigner,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	p, err := h.cmr.Get(c.Request.Context(), actor, orderID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"stage": p.Stage, "stop_index": p.StopIndex, "total_stops": p.Total})
}

func (h *CMRHandler) Get(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	p, err := h.cmr.Get(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	records := make([]gin.H, 0, len(p.Records))
	for _, r := range p.Records {
		records = append(records, gin.H{
			"stop_index":           r.StopIndex,
			"consignee_name":       r.ConsigneeName,
			"consignee_address":    r.ConsigneeAddress,
			"pickup_signed":        r.PickupSigned(),
			"confirmed":            r.Confirmed(),
			"not_home":             r.NotHome,
			"pickup_waiting_min":   r.PickupWaitingMin,
			"delivery_waiting_min": r.DeliveryWaitingMin,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{
		"stage":      p.Stage,
		"stop_index": p.StopIndex,
		"total":      p.Total,
		"records":    records,
	})
}
