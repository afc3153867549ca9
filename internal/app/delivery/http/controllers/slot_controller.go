package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/app/services/slot"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/dto/requests"
	"clinic-booking-service/internal/pkg/dto/responses"
	"clinic-booking-service/internal/pkg/exceptions"
	"clinic-booking-service/internal/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type SlotController struct {
	Log         *zap.Logger
	SlotUsecase contracts.SlotUsecase
}

var (
	slotControllerInstance *SlotController
	onceSlotController     sync.Once
)

func NewSlotController(logger *zap.Logger, slotUsecase contracts.SlotUsecase) *SlotController {
	onceSlotController.Do(func() {
		slotControllerInstance = &SlotController{
			Log:         logger,
			SlotUsecase: slotUsecase,
		}
	})
	return slotControllerInstance
}

// CreateSlot provisions a slot outside the generator schedule. The id is
// derived from date, shift and package, so submitting the same slot twice is
// harmless.
func (ctrl *SlotController) CreateSlot(w http.ResponseWriter, r *http.Request) {
	requestID := utils.RequestIDFromContext(r.Context())

	request := new(requests.CreateSlot)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotParseJSON(err))
		return
	}
	if err := utils.ValidateStruct(request); err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	slotID := slot.DeterministicSlotID(request.Date, models.Shift(request.Shift), request.PackageID)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := ctrl.SlotUsecase.Create(ctx, &models.CreateSlotCommand{
		SlotID:      slotID,
		Date:        request.Date,
		Shift:       request.Shift,
		PackageID:   request.PackageID,
		MaxQuantity: request.MaxQuantity,
	})
	if err != nil {
		ctrl.Log.Error("Failed to create slot",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingSlotIDKey, slotID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusCreated, constvars.CreateSlotSuccessMessage,
		responses.SlotCreated{SlotID: slotID})
}

func (ctrl *SlotController) UpdateMaxQuantity(w http.ResponseWriter, r *http.Request) {
	requestID := utils.RequestIDFromContext(r.Context())

	slotID := chi.URLParam(r, constvars.URLParamSlotID)
	if slotID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrURLParamIDValidation(nil, constvars.URLParamSlotID))
		return
	}

	request := new(requests.UpdateSlotMaxQuantity)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotParseJSON(err))
		return
	}
	if err := utils.ValidateStruct(request); err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := ctrl.SlotUsecase.UpdateMaxQuantity(ctx, &models.UpdateSlotMaxQuantityCommand{
		SlotID:      slotID,
		MaxQuantity: request.MaxQuantity,
	})
	if err != nil {
		ctrl.Log.Error("Failed to update slot capacity",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingSlotIDKey, slotID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.UpdateSlotCapacitySuccessMessage, nil)
}

func (ctrl *SlotController) GetSlot(w http.ResponseWriter, r *http.Request) {
	requestID := utils.RequestIDFromContext(r.Context())

	slotID := chi.URLParam(r, constvars.URLParamSlotID)
	if slotID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrURLParamIDValidation(nil, constvars.URLParamSlotID))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	snapshot, err := ctrl.SlotUsecase.Get(ctx, slotID)
	if err != nil {
		ctrl.Log.Error("Failed to get slot",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingSlotIDKey, slotID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.GetSlotSuccessMessage, responses.Slot{
		SlotID:            snapshot.SlotID,
		Date:              snapshot.Date,
		Shift:             snapshot.Shift.String(),
		PackageID:         snapshot.PackageID,
		MaxQuantity:       snapshot.MaxQuantity,
		RemainingQuantity: snapshot.RemainingQuantity,
	})
}
