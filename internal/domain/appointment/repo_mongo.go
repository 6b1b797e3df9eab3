package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/strokecare/api/internal/platform/errs"
)

type repoMongo struct {
	appts *mongo.Collection
}

// NewRepoMongo returns the document-store implementation of Repository.
func NewRepoMongo(database *mongo.Database) Repository {
	return &repoMongo{appts: database.Collection("appointments")}
}

// EnsureMongoIndexes creates the indexes the per-party list queries use.
func EnsureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection("appointments").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "patient_id", Value: 1}}},
		{Keys: bson.D{{Key: "doctor_id", Value: 1}}},
		{Keys: bson.D{{Key: "appointment_date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("appointments indexes: %w", err)
	}
	return nil
}

type apptDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PatientID string             `bson:"patient_id"`
	DoctorID  string             `bson:"doctor_id"`
	Date      string             `bson:"appointment_date"`
	Time      string             `bson:"appointment_time"`
	Reason    string             `bson:"reason"`
	Urgency   string             `bson:"urgency"`
	Status    string             `bson:"status"`
	Notes     *string            `bson:"notes,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d *apptDoc) toAppointment() *Appointment {
	return &Appointment{
		ID:        d.ID.Hex(),
		PatientID: d.PatientID,
		DoctorID:  d.DoctorID,
		Date:      d.Date,
		Time:      d.Time,
		Reason:    d.Reason,
		Urgency:   d.Urgency,
		Status:    d.Status,
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (r *repoMongo) Create(ctx context.Context, a *Appointment) error {
	now := time.Now().UTC()
	doc := &apptDoc{
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date,
		Time:      a.Time,
		Reason:    a.Reason,
		Urgency:   a.Urgency,
		Status:    a.Status,
		Notes:     a.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := r.appts.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	a.ID = res.InsertedID.(primitive.ObjectID).Hex()
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (r *repoMongo) FindByID(ctx context.Context, id string) (*Appointment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrNotFound
	}
	doc := &apptDoc{}
	err = r.appts.FindOne(ctx, bson.M{"_id": oid}).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return doc.toAppointment(), nil
}

func (r *repoMongo) FindAll(ctx context.Context) ([]*Appointment, error) {
	return r.find(ctx, bson.M{})
}

func (r *repoMongo) FindByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	return r.find(ctx, bson.M{"patient_id": patientID})
}

func (r *repoMongo) FindByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	return r.find(ctx, bson.M{"doctor_id": doctorID})
}

func (r *repoMongo) find(ctx context.Context, filter bson.M) ([]*Appointment, error) {
	cursor, err := r.appts.Find(ctx, filter, options.Find().SetSort(bson.D{
		{Key: "appointment_date", Value: -1},
		{Key: "appointment_time", Value: -1},
	}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var appts []*Appointment
	for cursor.Next(ctx) {
		doc := &apptDoc{}
		if err := cursor.Decode(doc); err != nil {
			return nil, err
		}
		appts = append(appts, doc.toAppointment())
	}
	return appts, cursor.Err()
}

func (r *repoMongo) Update(ctx context.Context, a *Appointment) error {
	oid, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return errs.ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()

	res, err := r.appts.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"appointment_date": a.Date,
		"appointment_time": a.Time,
		"reason":           a.Reason,
		"urgency":          a.Urgency,
		"status":           a.Status,
		"notes":            a.Notes,
		"updated_at":       a.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoMongo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errs.ErrNotFound
	}
	res, err := r.appts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoMongo) CountOnDate(ctx context.Context, date string) (int, error) {
	count, err := r.appts.CountDocuments(ctx, bson.M{
		"appointment_date": date,
		"status":           bson.M{"$ne": StatusCancelled},
	})
	return int(count), err
}
