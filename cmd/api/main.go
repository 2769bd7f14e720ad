package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"github.com/example/homecare/backend/internal/config"
	"github.com/example/homecare/backend/internal/db"
	"github.com/example/homecare/backend/internal/jobs"
	"github.com/example/homecare/backend/internal/models"
	"github.com/example/homecare/backend/internal/mq"
	"github.com/example/homecare/backend/internal/service"
	"github.com/example/homecare/backend/internal/tcp"
	"github.com/example/homecare/backend/internal/worker"
)

func main() {
	cfg := config.Load()

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	autoMigrate(database)

	var publisher mq.Publisher
	rabbitPublisher, err := mq.NewRabbitPublisher(cfg.MQURL, cfg.MQBookingExchange)
	if err != nil {
		log.Printf("warning: rabbitmq unavailable (%v), continuing without events", err)
	} else {
		publisher = rabbitPublisher
	}

	workflowService := service.NewWorkflowService(database, publisher)
	queryService := service.NewQueryService(database)

	manager := tcp.NewConnManager(cfg.MaxConnections)
	dispatcher := tcp.NewDispatcher(workflowService, queryService)
	server := tcp.NewServer(tcp.ServerConfig{
		Addr:            cfg.TCPAddr,
		MaxConnections:  cfg.MaxConnections,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		IdleTimeout:     cfg.IdleTimeout,
	}, manager, dispatcher)

	if err := server.Listen(); err != nil {
		log.Fatalf("listen on %s: %v", cfg.TCPAddr, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if publisher != nil {
		go runEventLogger(ctx, cfg)
	}

	stats := jobs.NewStatsReporter(manager, cfg.StatsCronSpec)
	if err := stats.Start(); err != nil {
		log.Printf("stats reporter not started: %v", err)
	}
	defer stats.Stop()

	go func() {
		log.Printf("TCP server listening on %s", server.Address())
		if err := server.Serve(ctx); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown initiated")

	if err := server.Close(); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if rabbitPublisher != nil {
		_ = rabbitPublisher.Close()
	}
	log.Println("bye")
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Staff{},
		&models.ServiceRequest{},
		&models.Booking{},
		&models.InspectionReport{},
		&models.WorkLog{},
		&models.Review{},
	)
	if err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
}

func runEventLogger(ctx context.Context, cfg config.Config) {
	consumer, err := mq.NewRabbitConsumer(cfg.MQURL, cfg.MQBookingExchange, cfg.MQBookingQueue)
	if err != nil {
		log.Printf("event logger not started: %v", err)
		return
	}
	defer consumer.Close()

	logger := worker.NewEventLogger(consumer)
	if err := logger.Run(ctx); err != nil {
		log.Printf("event logger error: %v", err)
	}
}
