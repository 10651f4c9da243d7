// README: Admin handlers: invoices, penalties, vehicle rates.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpmiddleware "kurier/internal/http/middleware"
	"kurier/internal/modules/invoice"
	"kurier/internal/modules/penalty"
	"kurier/internal/modules/pricing"
	"kurier/internal/types"
)

type AdminHandler struct {
	invoices  *invoice.Service
	penalties *penalty.Service
	pricing   *pricing.Service
}

func NewAdminHandler(invoices *invoice.Service, penalties *penalty.Service, pricingSvc *pricing.Service) *AdminHandler {
	return &AdminHandler{invoices: invoices, penalties: penalties, pricing: pricingSvc}
}

type generateInvoiceReq struct {
	CustomerID      string   `json:"customer_id" binding:"required"`
	OrderIDs        []string `json:"order_ids"`
	DiscountPercent int      `json:"discount_percent" binding:"gte=0,lte=100"`
	SkontoPercent   int      `json:"skonto_percent" binding:"gte=0,lte=100"`
	VATPercent      int      `json:"vat_percent" binding:"gte=0,lte=100"`
}

func (h *AdminHandler) GenerateInvoice(c *gin.Context) {
	var req generateInvoiceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	orderIDs := make([]types.ID, 0, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		orderIDs = append(orderIDs, types.ID(id))
	}
	actor := httpmiddleware.ActorFrom(c)
	inv, err := h.invoices.Generate(c.Request.Context(), actor, invoice.GenerateCommand{
		CustomerID: types.ID(req.CustomerID),
		OrderIDs:   orderIDs,
		Presentation: invoice.Presentation{
			DiscountPercent: req.DiscountPercent,
			SkontoPercent:   req.SkontoPercent,
			VATPercent:      req.VATPercent,
		},
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, viewInvoice(inv))
}

func (h *AdminHandler) GetInvoice(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	inv, err := h.invoices.Get(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewInvoice(inv))
}

// ListInvoices serves a customer's own invoices; staff may list anybody's.
func (h *AdminHandler) ListInvoices(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	list, err := h.invoices.ListByCustomer(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, inv := range list {
		out = append(out, viewInvoice(&inv))
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *AdminHandler) MarkInvoiceSent(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	if err := h.invoices.MarkEmailSent(c.Request.Context(), actor, types.ID(c.Param("id"))); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"email_sent": true})
}

type paymentStatusReq struct {
	Status string `json:"status" binding:"required,oneof=open paid"`
}

func (h *AdminHandler) SetInvoicePaymentStatus(c *gin.Context) {
	var req paymentStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	err := h.invoices.SetPaymentStatus(c.Request.Context(), actor, types.ID(c.Param("id")), invoice.PaymentStatus(req.Status))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"payment_status": req.Status})
}

func (h *AdminHandler) ListPenalties(c *gin.Context) {
	actor := httpmiddleware.ActorFrom(c)
	list, err := h.penalties.ListByContractor(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, p := range list {
		out = append(out, gin.H{
			"penalty_id":        p.ID,
			"order_id":          p.OrderID,
			"contractor_id":     p.ContractorID,
			"amount_cents":      p.Amount.Amount,
			"status":            p.Status,
			"cancellation_type": p.CancellationType,
			"created_at":        p.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, out)
}

type settlePenaltyReq struct {
	Status string `json:"status" binding:"required,oneof=paid waived deducted"`
}

func (h *AdminHandler) SettlePenalty(c *gin.Context) {
	var req settlePenaltyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	err := h.penalties.Settle(c.Request.Context(), actor, types.ID(c.Param("id")), penalty.Status(req.Status))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": req.Status})
}

type vehicleRateReq struct {
	PerKmCents   int64 `json:"per_km_cents" binding:"required,gt=0"`
	PerHourCents int64 `json:"per_hour_cents" binding:"required,gt=0"`
}

func (h *AdminHandler) UpsertVehicleRate(c *gin.Context) {
	var req vehicleRateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	actor := httpmiddleware.ActorFrom(c)
	if !actor.IsStaff() {
		writeError(c, http.StatusForbidden, "actor not allowed")
		return
	}
	err := h.pricing.SetRate(c.Request.Context(), c.Param("vehicle"), pricing.Rate{
		PerKmCents:   req.PerKmCents,
		PerHourCents: req.PerHourCents,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"vehicle_type": c.Param("vehicle")})
}

func viewInvoice(inv *invoice.Invoice) gin.H {
	return gin.H{
		"invoice_id":        inv.ID,
		"customer_id":       inv.CustomerID,
		"order_ids":         inv.OrderIDs,
		"subtotal":          inv.Subtotal.Amount,
		"waiting_time_fees": inv.WaitingTimeFees.Amount,
		"total":             inv.Total.Amount,
		"email_sent":        inv.EmailSent,
		"payment_status":    inv.PaymentStatus,
		"created_at":        inv.CreatedAt,
	}
}
