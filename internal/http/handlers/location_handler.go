// README: Contractor location handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httpmiddleware "kurier/internal/http/middleware"
	"kurier/internal/modules/location"
	"kurier/internal/types"
)

type LocationHandler struct {
	location *location.Service
}

func NewLocationHandler(svc *location.Service) *LocationHandler {
	return &LocationHandler{location: svc}
}

type updateLocationReq struct {
	Lat float64 `json:"lat" binding:"required"`
	Lng float64 `json:"lng" binding:"required"`
}

func (h *LocationHandler) Update(c *gin.Context) {
	var req updateLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	err := h.location.Update(c.Request.Context(), actor, types.ID(c.Param("id")), types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		writeLocationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Remove drops a contractor from the live position index, e.g. at the end of
// a shift.
func (h *LocationHandler) Remove(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	if err := h.location.Remove(c.Request.Context(), actor, types.ID(c.Param("id"))); err != nil {
		writeLocationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LocationHandler) Nearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, "lat and lng query parameters required")
		return
	}
	radiusKm, _ := strconv.ParseFloat(c.DefaultQuery("radius_km", "0"), 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	actor := httpmiddleware.ActorFrom(c)
	candidates, err := h.location.Nearby(c.Request.Context(), actor, types.Point{Lat: lat, Lng: lng}, radiusKm, limit)
	if err != nil {
		writeLocationError(c, err)
		return
	}
	out := make([]gin.H, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, gin.H{"contractor_id": cand.ContractorID, "distance_km": cand.DistanceKm})
	}
	writeJSON(c, http.StatusOK, out)
}

func writeLocationError(c *gin.Context, err error) {
	switch err {
	case location.ErrValidation:
		writeError(c, http.StatusBadRequest, err.Error())
	case location.ErrUnauthorized:
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
