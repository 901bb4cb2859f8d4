package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"unitedkarts/handlers"
	"unitedkarts/internal/auth"
	"unitedkarts/internal/cart"
	"unitedkarts/internal/catalog"
	"unitedkarts/internal/consul"
	"unitedkarts/internal/coupons"
	"unitedkarts/internal/orders"
	"unitedkarts/internal/pricing"
	"unitedkarts/internal/stores/cache"
	"unitedkarts/internal/stores/kafka"
	"unitedkarts/internal/stores/postgres"
	"unitedkarts/internal/users"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const serviceName = "unitedkarts"

func main() {
	setupSlog()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on the environment")
	}

	if err := startApp(); err != nil {
		slog.Error("service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func startApp() error {
	slog.Info("migrating database")
	db, err := postgres.OpenDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := postgres.RunMigrations(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	keys, err := loadAuthKeys()
	if err != nil {
		return err
	}

	u, err := users.NewConf(db)
	if err != nil {
		return err
	}
	cat, err := catalog.NewConf(db)
	if err != nil {
		return err
	}
	cConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	o, err := orders.NewConf(db)
	if err != nil {
		return err
	}
	cp, err := coupons.NewConf(db)
	if err != nil {
		return err
	}

	pricingConf, err := pricing.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading pricing config: %w", err)
	}

	// Kafka and Redis are optional; the service degrades to no events and no
	// menu cache when they are absent.
	var k *kafka.Conf
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		k, err = kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			return fmt.Errorf("connecting to kafka: %w", err)
		}
		defer k.Close()
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	var menus *cache.RedisCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("pinging redis: %w", err)
		}
		menus = cache.NewRedisCache(client, 5*time.Minute)
		defer client.Close()
	} else {
		slog.Warn("REDIS_ADDR not set, menu cache disabled")
	}

	port, err := strconv.Atoi(os.Getenv("APP_PORT"))
	if err != nil || port <= 0 {
		port = 8080
	}
	host := os.Getenv("APP_HOST")
	if host == "" {
		host = "localhost"
	}

	prefix := os.Getenv("SERVICE_ENDPOINT_PREFIX")
	if prefix == "" {
		prefix = "/api/v1"
	}

	api := http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handlers.API(prefix, keys, u, cat, cConf, o, cp, k, menus, pricingConf),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if os.Getenv("CONSUL_HTTP_ADDR") != "" {
		client, err := consul.NewClient()
		if err != nil {
			return err
		}
		if err := consul.RegisterService(client, serviceName, host, port); err != nil {
			return err
		}
		defer func() {
			if err := consul.DeregisterService(client, serviceName, host, port); err != nil {
				slog.Error("consul deregistration failed", slog.String("error", err.Error()))
			}
		}()
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("starting server", slog.Int("port", port))
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info("shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := api.Shutdown(ctx); err != nil {
			if closeErr := api.Close(); closeErr != nil {
				return fmt.Errorf("forcing server close: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

func loadAuthKeys() (*auth.Keys, error) {
	privatePath := os.Getenv("AUTH_PRIVATE_KEY_FILE")
	publicPath := os.Getenv("AUTH_PUBLIC_KEY_FILE")
	if privatePath == "" || publicPath == "" {
		return nil, fmt.Errorf("AUTH_PRIVATE_KEY_FILE and AUTH_PUBLIC_KEY_FILE must be set")
	}

	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	return auth.NewKeys(privatePEM, publicPEM)
}

func setupSlog() {
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	})
	slog.SetDefault(slog.New(logHandler))
}
