package config

import (
	"context"
	"log"

	"github.com/go-chi/chi/v5"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Bootstrap struct {
	Router         *chi.Mux
	MongoDB        *mongo.Client
	Redis          *redis.Client
	Logger         *zap.Logger
	RabbitMQ       *amqp091.Connection
	InternalConfig *InternalConfig
	DriverConfig   *DriverConfig
	// Stop functions registered by background workers; called during Shutdown.
	ConsumerStop       func()
	DeadlineWorkerStop func()
	SlotWorkerStop     func()
}

func (b *Bootstrap) Shutdown(ctx context.Context) error {
	if b.ConsumerStop != nil {
		b.ConsumerStop()
		log.Println("Successfully stopped message consumers")
	}

	if b.DeadlineWorkerStop != nil {
		b.DeadlineWorkerStop()
		log.Println("Successfully stopped deadline worker")
	}

	if b.SlotWorkerStop != nil {
		b.SlotWorkerStop()
		log.Println("Successfully stopped slot worker")
	}

	err := b.Redis.Close()
	if err != nil {
		return err
	}
	log.Println("Successfully closing Redis")

	err = b.RabbitMQ.Close()
	if err != nil {
		return err
	}
	log.Println("Successfully closing RabbitMQ")

	err = b.MongoDB.Disconnect(ctx)
	if err != nil {
		return err
	}
	log.Println("Successfully closing MongoDB")

	err = b.Logger.Sync()
	if err != nil {
		return err
	}
	log.Println("Successfully closing Logger")

	return nil
}
