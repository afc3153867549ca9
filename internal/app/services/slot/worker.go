package slot

import (
	"context"
	"fmt"
	"time"

	"clinic-booking-service/internal/app/config"
	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const generatorLockKey = "slot:generator:leader"

// slotNamespace seeds deterministic slot ids, so re-running the generator for
// the same day, shift and package resolves to the same aggregate.
var slotNamespace = uuid.MustParse("1f9d2c4e-7b64-4a11-9f2e-3df0c8a55b90")

// DeterministicSlotID derives the slot id for one date, shift and package.
func DeterministicSlotID(date string, shift models.Shift, packageID string) string {
	seed := fmt.Sprintf("%s|%d|%s", date, shift, packageID)
	return uuid.NewSHA1(slotNamespace, []byte(seed)).String()
}

// GeneratorWorker creates the bookable slots a few weeks ahead on a cron
// schedule. Creation goes through the command bus so it exercises the same
// path as administrative commands, and deterministic ids make reruns no-ops.
type GeneratorWorker struct {
	commands contracts.CommandBus
	locker   contracts.LockerService
	log      *zap.Logger
	cfg      config.SlotGeneration
	location *time.Location
	cron     *cron.Cron
}

func NewGeneratorWorker(
	commands contracts.CommandBus,
	locker contracts.LockerService,
	logger *zap.Logger,
	cfg config.SlotGeneration,
	location *time.Location,
) *GeneratorWorker {
	return &GeneratorWorker{
		commands: commands,
		locker:   locker,
		log:      logger,
		cfg:      cfg,
		location: location,
	}
}

func (w *GeneratorWorker) Start(ctx context.Context) error {
	w.cron = cron.New(cron.WithLocation(w.location))
	_, err := w.cron.AddFunc(w.cfg.CronSpec, func() {
		w.GenerateFrom(ctx, time.Now().In(w.location))
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	return nil
}

func (w *GeneratorWorker) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

// GenerateFrom sends a CreateSlot command for every day from the day after
// start until WeeksAhead weeks out, per package and per shift.
func (w *GeneratorWorker) GenerateFrom(ctx context.Context, start time.Time) {
	acquired, lockValue, err := w.locker.TryLock(ctx, generatorLockKey, time.Minute)
	if err != nil {
		w.log.Error("slotGenerator.GenerateFrom cannot acquire leader lock", zap.Error(err))
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, generatorLockKey, lockValue); err != nil {
			w.log.Warn("slotGenerator.GenerateFrom cannot release leader lock", zap.Error(err))
		}
	}()

	days := w.cfg.WeeksAhead * 7
	sent := 0
	for offset := 1; offset <= days; offset++ {
		date := start.AddDate(0, 0, offset).Format(time.DateOnly)
		for _, packageID := range w.cfg.PackageIDs {
			for _, shift := range []models.Shift{models.ShiftMorning, models.ShiftAfternoon} {
				slotID := DeterministicSlotID(date, shift, packageID)
				cmd := models.CreateSlotCommand{
					SlotID:      slotID,
					Date:        date,
					Shift:       int(shift),
					PackageID:   packageID,
					MaxQuantity: w.cfg.DefaultMaxQuantity,
				}
				if err := w.commands.Send(ctx, constvars.CmdCreateSlot, slotID, cmd); err != nil {
					w.log.Error("slotGenerator.GenerateFrom cannot send create command",
						zap.String(constvars.LoggingSlotIDKey, slotID),
						zap.Error(err),
					)
					continue
				}
				sent++
			}
		}
	}

	w.log.Info("slotGenerator.GenerateFrom finished",
		zap.Int("days", days),
		zap.Int("commands_sent", sent),
	)
}
