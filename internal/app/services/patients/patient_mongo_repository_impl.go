package patients

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

type PatientMongoRepository struct {
	Collection *mongo.Collection
}

func NewPatientMongoRepository(db *mongo.Database) contracts.PatientRepository {
	return &PatientMongoRepository{
		Collection: db.Collection(constvars.MongoCollectionPatients),
	}
}

// Upsert keys on patient_id so a redelivered CreatePatient command lands on
// the same document instead of inserting a duplicate.
func (r *PatientMongoRepository) Upsert(ctx context.Context, patient *models.Patient) error {
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}

	filter := bson.M{"patient_id": patient.PatientID}
	update := bson.M{"$set": patient}
	_, err := r.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *PatientMongoRepository) Delete(ctx context.Context, patientID string) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return exceptions.ErrMongoDBDeleteDocument(err)
	}
	return nil
}

func (r *PatientMongoRepository) FindByPatientID(ctx context.Context, patientID string) (*models.Patient, error) {
	var patient models.Patient
	err := r.Collection.FindOne(ctx, bson.M{"patient_id": patientID}).Decode(&patient)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &patient, nil
}
