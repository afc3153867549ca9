package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-booking-service/internal/app/config"
	"clinic-booking-service/internal/app/delivery/http/controllers"
	"clinic-booking-service/internal/app/delivery/http/middlewares"
	"clinic-booking-service/internal/app/delivery/http/routers"
	"clinic-booking-service/internal/app/drivers/database"
	"clinic-booking-service/internal/app/drivers/logger"
	drivermailer "clinic-booking-service/internal/app/drivers/mailer"
	"clinic-booking-service/internal/app/drivers/messaging"
	"clinic-booking-service/internal/app/services/appointments"
	"clinic-booking-service/internal/app/services/booking"
	"clinic-booking-service/internal/app/services/patients"
	"clinic-booking-service/internal/app/services/shared/bus"
	"clinic-booking-service/internal/app/services/shared/deadline"
	"clinic-booking-service/internal/app/services/shared/eventstore"
	"clinic-booking-service/internal/app/services/shared/locker"
	"clinic-booking-service/internal/app/services/shared/mailer"
	"clinic-booking-service/internal/app/services/shared/redis"
	"clinic-booking-service/internal/app/services/slot"
	"clinic-booking-service/internal/app/services/verification"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

const consumerPrefetch = 16

func main() {
	driverConfig := config.NewDriverConfig()
	internalConfig := config.NewInternalConfig()

	log := logger.NewZapLogger(driverConfig, internalConfig)
	accessLog := logger.NewLogrusLogger(internalConfig)

	location, err := time.LoadLocation(internalConfig.App.Timezone)
	if err != nil {
		log.Fatal("Error loading location", zap.Error(err))
	}
	time.Local = location

	mongoDB := database.NewMongoDB(driverConfig)
	redisClient := database.NewRedisClient(driverConfig)
	rabbitMQ := messaging.NewRabbitMQ(driverConfig)
	chiRouter := chi.NewRouter()

	bootstrap := &config.Bootstrap{
		Router:         chiRouter,
		MongoDB:        mongoDB,
		Redis:          redisClient,
		Logger:         log,
		RabbitMQ:       rabbitMQ,
		DriverConfig:   driverConfig,
		InternalConfig: internalConfig,
	}
	bootstrapingTheApp(bootstrap, accessLog, location)

	server := &http.Server{
		Addr:    internalConfig.App.Port,
		Handler: chiRouter,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	logrus.Println("Waiting for pending requests that already received by server to be processed..")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(internalConfig.App.ShutdownTimeout),
	)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	err = bootstrap.Shutdown(shutdownCtx)
	if err != nil {
		log.Fatal("Error shutting down application resources", zap.Error(err))
	}

	logrus.Println("Server exiting")
}

func bootstrapingTheApp(bootstrap *config.Bootstrap, accessLog *logrus.Logger, location *time.Location) {
	log := bootstrap.Logger
	mongoDatabase := bootstrap.MongoDB.Database(bootstrap.DriverConfig.MongoDB.DbName)

	// Redis
	redisRepository := redis.NewRedisRepository(bootstrap.Redis)
	lockerService := locker.NewLockService(redisRepository, log)

	// Messaging
	messageBus, err := bus.NewRabbitMQBus(bootstrap.RabbitMQ, log, consumerPrefetch)
	if err != nil {
		log.Fatal("Error setting up RabbitMQ bus", zap.Error(err))
	}

	// Event store
	eventStore, err := eventstore.NewMongoEventStore(mongoDatabase)
	if err != nil {
		log.Fatal("Error setting up event store", zap.Error(err))
	}

	// Mailer
	smtpClient := drivermailer.NewSMTPClient(bootstrap.DriverConfig)
	mailerService := mailer.NewMailerService(smtpClient)

	// Slot
	slotUsecase := slot.NewSlotUsecase(eventStore, lockerService, messageBus, log)
	slotConsumer := slot.NewCommandConsumer(slotUsecase, log)

	// Booking saga
	deadlineScheduler := deadline.NewRedisScheduler(redisRepository, log)
	sagaRepository := booking.NewSagaMongoRepository(mongoDatabase)
	statusRepository := booking.NewStatusMongoRepository(mongoDatabase)
	sagaManager := booking.NewSagaManager(
		messageBus,
		messageBus,
		deadlineScheduler,
		sagaRepository,
		log,
		bootstrap.InternalConfig.Booking,
	)
	statusProjection := booking.NewStatusProjection(statusRepository, log)

	// Collaborators
	patientConsumer := patients.NewCommandConsumer(patients.NewPatientMongoRepository(mongoDatabase), messageBus, log)
	appointmentConsumer := appointments.NewCommandConsumer(appointments.NewAppointmentMongoRepository(mongoDatabase), messageBus, log)
	verificationConsumer := verification.NewCommandConsumer(mailerService, messageBus, log)

	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	bootstrap.ConsumerStop = stopConsumers

	if err := slotConsumer.Start(consumerCtx, messageBus); err != nil {
		log.Fatal("Error starting slot command consumer", zap.Error(err))
	}
	if err := patientConsumer.Start(consumerCtx, messageBus); err != nil {
		log.Fatal("Error starting patient command consumer", zap.Error(err))
	}
	if err := appointmentConsumer.Start(consumerCtx, messageBus); err != nil {
		log.Fatal("Error starting appointment command consumer", zap.Error(err))
	}
	if err := verificationConsumer.Start(consumerCtx, messageBus); err != nil {
		log.Fatal("Error starting verification command consumer", zap.Error(err))
	}
	if err := sagaManager.Start(consumerCtx, messageBus); err != nil {
		log.Fatal("Error starting booking saga manager", zap.Error(err))
	}
	if err := statusProjection.Start(consumerCtx, messageBus); err != nil {
		log.Fatal("Error starting booking status projection", zap.Error(err))
	}

	// Deadline worker
	deadlineWorker := deadline.NewWorker(
		deadlineScheduler,
		lockerService,
		messageBus,
		log,
		time.Duration(bootstrap.InternalConfig.Booking.DeadlinePollIntervalInSeconds)*time.Second,
	)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	bootstrap.DeadlineWorkerStop = stopWorker
	go deadlineWorker.Run(workerCtx)

	// Slot generator
	generatorWorker := slot.NewGeneratorWorker(messageBus, lockerService, log, bootstrap.InternalConfig.Slot, location)
	if err := generatorWorker.Start(context.Background()); err != nil {
		log.Fatal("Error starting slot generator worker", zap.Error(err))
	}
	bootstrap.SlotWorkerStop = generatorWorker.Stop

	// HTTP delivery
	bookingUsecase := booking.NewBookingUsecase(slotUsecase, statusRepository, log)
	bookingController := controllers.NewBookingController(log, bookingUsecase)
	slotController := controllers.NewSlotController(log, slotUsecase)
	appMiddlewares := middlewares.NewMiddlewares(log, bootstrap.InternalConfig)

	routers.SetupRoutes(bootstrap.Router, bootstrap.InternalConfig, appMiddlewares, accessLog, bookingController, slotController)
}
