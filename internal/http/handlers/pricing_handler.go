// README: Quote handler: route estimation plus the pricing calculator.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kurier/internal/maps"
	"kurier/internal/modules/pricing"
)

// RouteEstimator resolves two addresses into route numbers. Nil when no maps
// API key is configured; quotes then require explicit distance and duration.
type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination string) (maps.RouteEstimate, error)
}

type PricingHandler struct {
	pricing *pricing.Service
	routes  RouteEstimator
}

func NewPricingHandler(svc *pricing.Service, routes RouteEstimator) *PricingHandler {
	return &PricingHandler{pricing: svc, routes: routes}
}

type quoteReq struct {
	PickupAddress   string  `json:"pickup_address"`
	DeliveryAddress string  `json:"delivery_address"`
	DistanceKm      float64 `json:"distance_km" binding:"gte=0"`
	DurationMin     float64 `json:"duration_min" binding:"gte=0"`
	VehicleType     string  `json:"vehicle_type" binding:"required"`
	LoadingHelp     bool    `json:"loading_help"`
	UnloadingHelp   bool    `json:"unloading_help"`
	LegalDelivery   bool    `json:"legal_delivery"`
}

func (h *PricingHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	distance, duration := req.DistanceKm, req.DurationMin
	if distance == 0 && req.PickupAddress != "" && req.DeliveryAddress != "" {
		if h.routes == nil {
			writeError(c, http.StatusBadRequest, "distance_km and duration_min required (no route service configured)")
			return
		}
		est, err := h.routes.Estimate(c.Request.Context(), req.PickupAddress, req.DeliveryAddress)
		if err != nil {
			writeError(c, http.StatusBadGateway, "route estimation failed")
			return
		}
		distance, duration = est.DistanceKm, est.DurationMin
	}

	quote, err := h.pricing.Quote(c.Request.Context(), pricing.QuoteRequest{
		DistanceKm:    distance,
		DurationMin:   duration,
		VehicleType:   req.VehicleType,
		LoadingHelp:   req.LoadingHelp,
		UnloadingHelp: req.UnloadingHelp,
		LegalDelivery: req.LegalDelivery,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"customer_price": quote.CustomerPrice.Amount,
		"minimum_price":  quote.MinimumPrice.Amount,
		"distance_km":    distance,
		"duration_min":   duration,
		"breakdown":      quote.Breakdown,
	})
}
