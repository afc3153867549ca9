package appointments

import (
	"context"
	"time"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AppointmentMongoRepository struct {
	Collection *mongo.Collection
}

func NewAppointmentMongoRepository(db *mongo.Database) contracts.AppointmentRepository {
	return &AppointmentMongoRepository{
		Collection: db.Collection(constvars.MongoCollectionAppointments),
	}
}

// Upsert keys on appointment_id so a redelivered CreateAppointment command is
// absorbed by the existing document.
func (r *AppointmentMongoRepository) Upsert(ctx context.Context, appointment *models.Appointment) error {
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = time.Now().UTC()
	}

	filter := bson.M{"appointment_id": appointment.AppointmentID}
	update := bson.M{"$set": appointment}
	_, err := r.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *AppointmentMongoRepository) FindByAppointmentID(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.Collection.FindOne(ctx, bson.M{"appointment_id": appointmentID}).Decode(&appointment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &appointment, nil
}
