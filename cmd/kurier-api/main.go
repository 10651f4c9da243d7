// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"kurier/internal/config"
	httptransport "kurier/internal/http"
	"kurier/internal/http/handlers"
	"kurier/internal/infra"
	"kurier/internal/logging"
	"kurier/internal/maps"
	"kurier/internal/modules/bid"
	"kurier/internal/modules/cmr"
	"kurier/internal/modules/invoice"
	"kurier/internal/modules/location"
	"kurier/internal/modules/order"
	"kurier/internal/modules/penalty"
	"kurier/internal/modules/pricing"
	"kurier/internal/notify"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	var publisher *notify.Publisher
	if cfg.Kafka.Enabled {
		writer := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = notify.NewPublisher(writer, logging.Component(log, "notify"))
		defer publisher.Close()
	}

	var routes handlers.RouteEstimator
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Region)
		if err != nil {
			log.WithError(err).Fatal("init maps client")
		}
		routes = routeSvc
	}

	pricingSvc := pricing.NewService(cfg.Pricing, pricing.NewStore(dbPool))

	feeSchedule, err := order.ScheduleFromConfig(cfg.Cancellation)
	if err != nil {
		log.WithError(err).Fatal("cancellation fee table")
	}

	penaltySvc := penalty.NewService(penalty.NewStore(dbPool), logging.Component(log, "penalty")).
		WithNotifier(publisher)

	orderSvc := order.NewService(
		order.NewStore(dbPool),
		pricingSvc,
		order.WaitingParamsFromConfig(cfg.Waiting),
		feeSchedule,
		logging.Component(log, "order"),
	).
		WithPenalties(penaltySvc).
		WithNotifier(publisher).
		WithCache(order.NewCache(redisClient))

	bidSvc := bid.NewService(bid.NewStore(dbPool), orderSvc, logging.Component(log, "bid"))
	cmrSvc := cmr.NewService(cmr.NewStore(dbPool), orderSvc, order.WaitingParamsFromConfig(cfg.Waiting), logging.Component(log, "cmr"))
	invoiceSvc := invoice.NewService(invoice.NewStore(dbPool), orderSvc, logging.Component(log, "invoice"))
	locationSvc := location.NewService(location.NewStore(redisClient))

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Order:    orderSvc,
		Bid:      bidSvc,
		CMR:      cmrSvc,
		Penalty:  penaltySvc,
		Invoice:  invoiceSvc,
		Pricing:  pricingSvc,
		Location: locationSvc,
		Routes:   routes,
		Logger:   logging.Component(log, "http"),
	})
	server := httptransport.NewServer(cfg.HTTP.Addr, router)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("starting api server")
	if err := server.Run(); err != nil {
		log.WithError(err).Fatal("server")
	}
}
