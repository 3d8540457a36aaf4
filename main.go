package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"order-management-service/handlers"
	"order-management-service/internal/auth"
	"order-management-service/internal/cart"
	"order-management-service/internal/config"
	"order-management-service/internal/consul"
	"order-management-service/internal/grpchealth"
	"order-management-service/internal/orders"
	"order-management-service/internal/products"
	"order-management-service/internal/stores/kafka"
	"order-management-service/internal/stores/postgres"
	"order-management-service/internal/users"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	if err := startApp(); err != nil {
		slog.Error("application stopped", slog.String("ERROR", err.Error()))
		os.Exit(1)
	}
}

func startApp() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	/*
		//------------------------------------------------------//
		                Setting up DB & Migrating tables
		//------------------------------------------------------//
	*/
	slog.Info("main started: initializing the database connection")
	db, err := postgres.OpenDB(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := postgres.Migrate(db); err != nil {
			return err
		}
		slog.Info("migrations applied")
	}

	uConf, err := users.NewConf(db)
	if err != nil {
		return err
	}
	pConf, err := products.NewConf(db)
	if err != nil {
		return err
	}
	cConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	oConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}

	/*
		//------------------------------------------------------//
		                Auth: token keys & revocation
		//------------------------------------------------------//
	*/
	keys, err := auth.NewKeys(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		revoker = auth.NewRedisRevoker(rdb)
		slog.Info("token revocation backed by redis", slog.String("Addr", cfg.RedisAddr))
	}

	/*
		//------------------------------------------------------//
		                Kafka producer for order events
		//------------------------------------------------------//
	*/
	var publisher handlers.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kConf, err := kafka.NewConf(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer kConf.Close()
		publisher = kConf
	}

	/*
		//------------------------------------------------------//
		                HTTP server
		//------------------------------------------------------//
	*/
	router, err := handlers.API(cfg.EndpointPrefix, keys, revoker, uConf, pConf, cConf, oConf, publisher)
	if err != nil {
		return err
	}
	api := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 2)
	go func() {
		slog.Info("api listening", slog.String("Port", cfg.Port))
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	var health *grpchealth.Server
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("listening on grpc port %s: %w", cfg.GRPCPort, err)
		}
		health = grpchealth.New(cfg.ServiceName)
		go func() {
			slog.Info("grpc health listening", slog.String("Port", cfg.GRPCPort))
			if err := health.Serve(lis); err != nil {
				serverErrors <- err
			}
		}()
	}

	/*
		//------------------------------------------------------//
		                Consul registration
		//------------------------------------------------------//
	*/
	if cfg.ConsulAddr != "" {
		port, err := cfg.ServicePort()
		if err != nil {
			return err
		}
		client, err := consul.NewClient(cfg.ConsulAddr)
		if err != nil {
			return err
		}
		id, err := consul.RegisterService(client, consul.Registration{Name: cfg.ServiceName, Host: cfg.ServiceHost, Port: port})
		if err != nil {
			return err
		}
		defer func() {
			if err := consul.DeregisterService(client, id); err != nil {
				slog.Error("consul deregistration failed", slog.String("ERROR", err.Error()))
			}
		}()
		slog.Info("registered with consul", slog.String("ServiceID", id))
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info("graceful shutdown started", slog.String("Signal", sig.String()))
		if health != nil {
			health.Stop()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
