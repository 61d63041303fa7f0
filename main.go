package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"checkout-service/awsx"
	"checkout-service/cache"
	"checkout-service/common/logger"
	"checkout-service/config"
	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/gateway"
	"checkout-service/kafka"
	"checkout-service/models"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Initialize(cfg.Environment)
	defer logger.Log.Sync()

	db, err := database.ConnectPostgres(cfg, logger.Log,
		&models.Address{},
		&models.Checkout{},
		&models.CheckoutLine{},
		&models.GiftCard{},
		&models.ShippingMethod{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Voucher{},
		&models.Warehouse{},
		&models.Stock{},
		&models.Allocation{},
		&models.Payment{},
		&models.Transaction{},
		&models.Order{},
		&models.OrderLine{},
		&models.StreamTicket{},
		&models.CustomerGatewayProfile{},
	)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close(db)

	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	completionLock := cache.NewCompletionLock(redisClient, 30*time.Second)

	awsCfg, err := awsx.LoadAWSConfig(context.Background())
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}
	snsClient := awsx.NewSNSClient(awsCfg)
	paymentEvents := awsx.NewPaymentEventPublisher(snsClient, cfg.PaymentSNSTopicARN)

	orderEvents := kafka.NewOrderEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.OrderEventTopic)
	defer orderEvents.Close()

	// Repositories
	checkoutRepo := repository.NewGormCheckoutRepository(db)
	voucherRepo := repository.NewGormVoucherRepository(db)
	stockRepo := repository.NewGormStockRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	ticketRepo := repository.NewGormTicketRepository(db)

	// Gateways
	gateways := map[string]gateway.PaymentGateway{
		"stripe": gateway.NewStripeGateway(cfg.StripeSecretKey),
		"sofort": gateway.NewSofortGateway(cfg.StripeSecretKey),
	}

	// Services
	pricer := services.NewPricingService(services.FlatTaxCalculator{})
	discounts := services.NewDiscountService(checkoutRepo, voucherRepo, pricer, logger.Log)
	stockChecker := services.NewStockService(stockRepo, logger.Log)
	tickets := services.NewStreamTicketService(ticketRepo, logger.Log)
	complete := services.NewCheckoutCompleteService(
		checkoutRepo, voucherRepo, stockRepo, paymentRepo, orderRepo,
		discounts, pricer, stockChecker, tickets, gateways, completionLock,
		orderEvents, paymentEvents, cfg.AllowedRedirectHosts, logger.Log,
	)
	webhooks := services.NewWebhookService(paymentRepo, complete, paymentEvents, logger.Log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger())

	cc := &controllers.CheckoutController{
		Complete:  complete,
		Discounts: discounts,
		Checkouts: checkoutRepo,
		Logger:    logger.Log,
	}
	wc := &controllers.WebhookController{
		Verifier: gateway.NewStripeWebhookVerifier(cfg.StripeWebhookKey),
		Webhooks: webhooks,
		Logger:   logger.Log,
	}
	routes.RegisterRoutes(router, cc, wc)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Checkout service is running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server shutdown complete.")
}
