package routers

import (
	"fmt"
	"time"

	"clinic-booking-service/internal/app/config"
	"clinic-booking-service/internal/app/delivery/http/controllers"
	"clinic-booking-service/internal/app/delivery/http/middlewares"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/sirupsen/logrus"
)

func SetupRoutes(
	router *chi.Mux,
	internalConfig *config.InternalConfig,
	middlewares *middlewares.Middlewares,
	accessLog *logrus.Logger,
	bookingController *controllers.BookingController,
	slotController *controllers.SlotController,
) {

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	router.Use(cors.Handler(corsOptions))

	// Rate limiting middleware using httprate
	rateLimiter := httprate.LimitByIP(internalConfig.App.MaxRequests, time.Second)
	router.Use(rateLimiter)

	router.Use(middlewares.ErrorHandler)
	router.Use(middlewares.RequestID)
	router.Use(middlewares.Logging(middlewares.Log))
	router.Use(middlewares.RequestLogger(accessLog))

	endpointPrefix := fmt.Sprintf("/%s", internalConfig.App.EndpointPrefix)
	versionPrefix := fmt.Sprintf("/%s", internalConfig.App.Version)

	router.Route(endpointPrefix, func(r chi.Router) {
		r.Route(versionPrefix, func(r chi.Router) {
			r.Route("/bookings", func(r chi.Router) {
				attachBookingRoutes(r, bookingController)
			})

			r.Route("/slots", func(r chi.Router) {
				attachSlotRoutes(r, slotController)
			})
		})
	})
}

func attachBookingRoutes(r chi.Router, bookingController *controllers.BookingController) {
	r.Post("/", bookingController.CreateBooking)
	r.Get("/{booking_id}", bookingController.GetBookingStatus)
}

func attachSlotRoutes(r chi.Router, slotController *controllers.SlotController) {
	r.Post("/", slotController.CreateSlot)
	r.Get("/{slot_id}", slotController.GetSlot)
	r.Patch("/{slot_id}/max-quantity", slotController.UpdateMaxQuantity)
}
