// README: Order handlers: creation, lifecycle transitions, and financials.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	httpmiddleware "kurier/internal/http/middleware"
	"kurier/internal/modules/order"
	"kurier/internal/types"
)

type OrderHandler struct {
	order *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{order: svc}
}

type createOrderReq struct {
	CustomerID      string    `json:"customer_id" binding:"required"`
	PickupAddress   string    `json:"pickup_address" binding:"required"`
	PickupCity      string    `json:"pickup_city"`
	PickupPostal    string    `json:"pickup_postal"`
	PickupLat       float64   `json:"pickup_lat"`
	PickupLng       float64   `json:"pickup_lng"`
	PickupAt        time.Time `json:"pickup_at" binding:"required,notpast"`
	DeliveryAddress string    `json:"delivery_address" binding:"required"`
	DeliveryCity    string    `json:"delivery_city"`
	DeliveryPostal  string    `json:"delivery_postal"`
	DeliveryLat     float64   `json:"delivery_lat"`
	DeliveryLng     float64   `json:"delivery_lng"`
	DistanceKm      float64   `json:"distance_km" binding:"required,gt=0"`
	DurationMin     float64   `json:"duration_min" binding:"required,gt=0"`
	VehicleType     string    `json:"vehicle_type" binding:"required"`
	LoadingHelp     bool      `json:"loading_help"`
	UnloadingHelp   bool      `json:"unloading_help"`
	LegalDelivery   bool      `json:"legal_delivery"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	id, err := h.order.Create(c.Request.Context(), actor, order.CreateCommand{
		CustomerID:      types.ID(req.CustomerID),
		PickupAddress:   req.PickupAddress,
		PickupCity:      req.PickupCity,
		PickupPostal:    req.PickupPostal,
		PickupPoint:     types.Point{Lat: req.PickupLat, Lng: req.PickupLng},
		PickupAt:        req.PickupAt,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryCity:    req.DeliveryCity,
		DeliveryPostal:  req.DeliveryPostal,
		DeliveryPoint:   types.Point{Lat: req.DeliveryLat, Lng: req.DeliveryLng},
		DistanceKm:      req.DistanceKm,
		DurationMin:     req.DurationMin,
		VehicleType:     req.VehicleType,
		LoadingHelp:     req.LoadingHelp,
		UnloadingHelp:   req.UnloadingHelp,
		LegalDelivery:   req.LegalDelivery,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"order_id": id, "status": order.StatusPending})
}

func (h *OrderHandler) Get(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	o, err := h.order.Get(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewOrder(actor, o))
}

func (h *OrderHandler) ListOpen(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	orders, err := h.order.ListOpen(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewOrders(actor, orders))
}

func (h *OrderHandler) ListByCustomer(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	orders, err := h.order.ListByCustomer(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewOrders(actor, orders))
}

func (h *OrderHandler) ListByContractor(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	orders, err := h.order.ListByContractor(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewOrders(actor, orders))
}

func (h *OrderHandler) Pickup(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	err := h.order.Pickup(c.Request.Context(), actor, order.PickupCommand{OrderID: types.ID(c.Param("id"))})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusPickedUp})
}

func (h *OrderHandler) StartTransit(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	err := h.order.StartTransit(c.Request.Context(), actor, order.TransitCommand{OrderID: types.ID(c.Param("id"))})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusInTransit})
}

type deliverReq struct {
	PickupWaitingMin   int `json:"pickup_waiting_min" binding:"gte=0"`
	DeliveryWaitingMin int `json:"delivery_waiting_min" binding:"gte=0"`
}

func (h *OrderHandler) Deliver(c *gin.Context) {
	var req deliverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	err := h.order.Deliver(c.Request.Context(), actor, order.DeliverCommand{
		OrderID:            types.ID(c.Param("id")),
		PickupWaitingMin:   req.PickupWaitingMin,
		DeliveryWaitingMin: req.DeliveryWaitingMin,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	o, err := h.order.Get(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": o.Status, "waiting_time_fee": o.WaitingTimeFee.Amount})
}

type approveWaitingReq struct {
	Approved *bool `json:"approved" binding:"required"`
}

func (h *OrderHandler) ApproveWaiting(c *gin.Context) {
	var req approveWaitingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	err := h.order.ApproveWaiting(c.Request.Context(), actor, order.ApproveWaitingCommand{
		OrderID:  types.ID(c.Param("id")),
		Approved: *req.Approved,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"approved": *req.Approved})
}

func (h *OrderHandler) Complete(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	err := h.order.Complete(c.Request.Context(), actor, order.CompleteCommand{OrderID: types.ID(c.Param("id"))})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusCompleted})
}

type cancelReq struct {
	By                  string `json:"by" binding:"required,oneof=customer contractor"`
	DriverStatus        string `json:"driver_status" binding:"omitempty,oneof=not_started en_route past_pickup"`
	FundedIncreaseCents int64  `json:"funded_increase_cents" binding:"gte=0"`
	Reason              string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	driver := order.DriverStatus(req.DriverStatus)
	if driver == "" {
		driver = order.DriverNotStarted
	}
	actor := httpmiddleware.ActorFrom(c)
	orderID := types.ID(c.Param("id"))
	err := h.order.Cancel(c.Request.Context(), actor, order.CancelCommand{
		OrderID:        orderID,
		By:             order.CancelledBy(req.By),
		Driver:         driver,
		FundedIncrease: types.EUR(req.FundedIncreaseCents),
		Reason:         req.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	o, err := h.order.Get(c.Request.Context(), actor, orderID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"status":            order.StatusCancelled,
		"cancellation_type": o.CancellationType,
		"cancellation_fee":  o.CancellationFee.Amount,
	})
}

type increasePriceReq struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

func (h *OrderHandler) IncreasePrice(c *gin.Context) {
	var req increasePriceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	err := h.order.IncreasePrice(c.Request.Context(), actor, order.IncreasePriceCommand{
		OrderID: types.ID(c.Param("id")),
		Amount:  types.EUR(req.AmountCents),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"increased_by": req.AmountCents})
}

// viewOrder shapes the response for the caller's role. Contractors see their
// own payout but never the customer-side prices.
func viewOrder(actor types.Actor, o *order.Order) gin.H {
	v := gin.H{
		"order_id":         o.ID,
		"status":           o.Status,
		"pickup_address":   o.PickupAddress,
		"pickup_city":      o.PickupCity,
		"pickup_at":        o.PickupAt,
		"delivery_address": o.DeliveryAddress,
		"delivery_city":    o.DeliveryCity,
		"distance_km":      o.DistanceKm,
		"duration_min":     o.DurationMin,
		"vehicle_type":     o.VehicleType,
		"created_at":       o.CreatedAt,
	}
	if o.WaitingTimeFee.Amount > 0 {
		v["waiting_time_fee"] = o.WaitingTimeFee.Amount
		v["waiting_time_approved"] = o.WaitingTimeApproved
	}
	if actor.Role == types.RoleContractor {
		if o.ContractorPrice != nil {
			v["contractor_price"] = o.ContractorPrice.Amount
		}
		return v
	}
	v["customer_price"] = o.CustomerPrice.Amount
	v["price_increase"] = o.PriceIncrease.Amount
	v["minimum_price"] = o.MinimumPriceAtCreation.Amount
	if actor.IsStaff() {
		if o.ContractorID != nil {
			v["contractor_id"] = *o.ContractorID
		}
		if o.ContractorPrice != nil {
			v["contractor_price"] = o.ContractorPrice.Amount
		}
	}
	if o.CancellationStatus != order.CancellationNone {
		v["cancellation_status"] = o.CancellationStatus
		v["cancellation_type"] = o.CancellationType
		v["cancellation_fee"] = o.CancellationFee.Amount
	}
	return v
}

func viewOrders(actor types.Actor, orders []order.Order) []gin.H {
	out := make([]gin.H, 0, len(orders))
	for i := range orders {
		out = append(out, viewOrder(actor, &orders[i]))
	}
	return out
}
