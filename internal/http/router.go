// README: HTTP router registration.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"kurier/internal/http/handlers"
	"kurier/internal/http/middleware"
	"kurier/internal/modules/bid"
	"kurier/internal/modules/cmr"
	"kurier/internal/modules/invoice"
	"kurier/internal/modules/location"
	"kurier/internal/modules/order"
	"kurier/internal/modules/penalty"
	"kurier/internal/modules/pricing"
)

type RouterDeps struct {
	Order     *order.Service
	Bid       *bid.Service
	CMR       *cmr.Service
	Penalty   *penalty.Service
	Invoice   *invoice.Service
	Pricing   *pricing.Service
	Location  *location.Service
	Routes    handlers.RouteEstimator
	Logger    *logrus.Entry
}

func NewRouter(deps RouterDeps) *gin.Engine {
	handlers.RegisterValidators()

	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger), middleware.Logging(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	api := r.Group("/api", middleware.Actor())

	orderHandler := handlers.NewOrderHandler(deps.Order)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/open", orderHandler.ListOpen)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/pickup", orderHandler.Pickup)
	api.POST("/orders/:id/transit", orderHandler.StartTransit)
	api.POST("/orders/:id/deliver", orderHandler.Deliver)
	api.POST("/orders/:id/approve-waiting", orderHandler.ApproveWaiting)
	api.POST("/orders/:id/complete", orderHandler.Complete)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)
	api.POST("/orders/:id/increase-price", orderHandler.IncreasePrice)
	api.GET("/customers/:id/orders", orderHandler.ListByCustomer)
	api.GET("/contractors/:id/orders", orderHandler.ListByContractor)

	bidHandler := handlers.NewBidHandler(deps.Bid)
	api.POST("/bids", bidHandler.Place)
	api.POST("/bids/:id/withdraw", bidHandler.Withdraw)
	api.POST("/bids/:id/accept", bidHandler.Accept)
	api.POST("/bids/:id/reject", bidHandler.Reject)
	api.GET("/orders/:id/bids", bidHandler.ListByOrder)
	api.GET("/contractors/:id/bids", bidHandler.ListByContractor)

	cmrHandler := handlers.NewCMRHandler(deps.CMR)
	api.POST("/orders/:id/cmr", cmrHandler.Init)
	api.GET("/orders/:id/cmr", cmrHandler.Get)
	api.POST("/orders/:id/cmr/sign-pickup", cmrHandler.SignPickup)
	api.POST("/orders/:id/cmr/stops", cmrHandler.SubmitStop)

	locationHandler := handlers.NewLocationHandler(deps.Location)
	api.PUT("/contractors/:id/location", locationHandler.Update)
	api.DELETE("/contractors/:id/location", locationHandler.Remove)
	api.GET("/contractors/nearby", locationHandler.Nearby)

	pricingHandler := handlers.NewPricingHandler(deps.Pricing, deps.Routes)
	api.POST("/quotes", pricingHandler.Quote)

	adminHandler := handlers.NewAdminHandler(deps.Invoice, deps.Penalty, deps.Pricing)
	api.POST("/invoices", adminHandler.GenerateInvoice)
	api.GET("/invoices/:id", adminHandler.GetInvoice)
	api.GET("/customers/:id/invoices", adminHandler.ListInvoices)
	api.POST("/invoices/:id/send", adminHandler.MarkInvoiceSent)
	api.PUT("/invoices/:id/payment-status", adminHandler.SetInvoicePaymentStatus)
	api.GET("/contractors/:id/penalties", adminHandler.ListPenalties)
	api.POST("/penalties/:id/settle", adminHandler.SettlePenalty)
	api.PUT("/vehicle-rates/:vehicle", adminHandler.UpsertVehicleRate)

	return r
}
