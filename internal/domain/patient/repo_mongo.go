package patient

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
	patients *mongo.Collection
	history  *mongo.Collection
}

// NewRepoMongo returns the document-store implementation of Repository.
// Object ids are rendered as hex strings at this boundary so callers never
// see the native type.
func NewRepoMongo(database *mongo.Database) Repository {
	return &repoMongo{
		patients: database.Collection("patients"),
		history:  database.Collection("medical_history"),
	}
}

// EnsureMongoIndexes creates the indexes the list queries lean on.
func EnsureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection("patients").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "risk_level", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_doctor_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("patients indexes: %w", err)
	}
	_, err = database.Collection("medical_history").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "patient_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("medical_history index: %w", err)
	}
	return nil
}

type recordDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Gender          string             `bson:"gender"`
	Age             int                `bson:"age"`
	Hypertension    int                `bson:"hypertension"`
	HeartDisease    int                `bson:"heart_disease"`
	EverMarried     string             `bson:"ever_married"`
	WorkType        string             `bson:"work_type"`
	ResidenceType   string             `bson:"residence_type"`
	AvgGlucoseLevel float64            `bson:"avg_glucose_level"`
	BMI             float64            `bson:"bmi"`
	SmokingStatus   string             `bson:"smoking_status"`
	Stroke          int                `bson:"stroke"`
	StrokeRisk      int                `bson:"stroke_risk"`
	RiskLevel       string             `bson:"risk_level"`
	CreatedBy       *string            `bson:"created_by,omitempty"`
	AssignedDoctor  *string            `bson:"assigned_doctor_id,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func (d *recordDoc) toRecord() *Record {
	return &Record{
		ID:              d.ID.Hex(),
		Gender:          d.Gender,
		Age:             d.Age,
		Hypertension:    d.Hypertension,
		HeartDisease:    d.HeartDisease,
		EverMarried:     d.EverMarried,
		WorkType:        d.WorkType,
		ResidenceType:   d.ResidenceType,
		AvgGlucoseLevel: d.AvgGlucoseLevel,
		BMI:             d.BMI,
		SmokingStatus:   d.SmokingStatus,
		Stroke:          d.Stroke,
		StrokeRisk:      d.StrokeRisk,
		RiskLevel:       d.RiskLevel,
		CreatedBy:       d.CreatedBy,
		AssignedDoctor:  d.AssignedDoctor,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func docFromRecord(rec *Record) *recordDoc {
	return &recordDoc{
		Gender:          rec.Gender,
		Age:             rec.Age,
		Hypertension:    rec.Hypertension,
		HeartDisease:    rec.HeartDisease,
		EverMarried:     rec.EverMarried,
		WorkType:        rec.WorkType,
		ResidenceType:   rec.ResidenceType,
		AvgGlucoseLevel: rec.AvgGlucoseLevel,
		BMI:             rec.BMI,
		SmokingStatus:   rec.SmokingStatus,
		Stroke:          rec.Stroke,
		StrokeRisk:      rec.StrokeRisk,
		RiskLevel:       rec.RiskLevel,
		CreatedBy:       rec.CreatedBy,
		AssignedDoctor:  rec.AssignedDoctor,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func (r *repoMongo) Create(ctx context.Context, rec *Record) error {
	doc := docFromRecord(rec)
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	res, err := r.patients.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	rec.ID = res.InsertedID.(primitive.ObjectID).Hex()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

func (r *repoMongo) FindByID(ctx context.Context, id string) (*Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrNotFound
	}
	doc := &recordDoc{}
	err = r.patients.FindOne(ctx, bson.M{"_id": oid}).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return doc.toRecord(), nil
}

func (r *repoMongo) FindAll(ctx context.Context, f Filter) ([]*Record, error) {
	return r.find(ctx, mongoFilter(bson.M{}, f))
}

func (r *repoMongo) FindByDoctor(ctx context.Context, doctorID string, f Filter) ([]*Record, error) {
	return r.find(ctx, mongoFilter(bson.M{"assigned_doctor_id": doctorID}, f))
}

func mongoFilter(base bson.M, f Filter) bson.M {
	if f.RiskLevel != "" {
		base["risk_level"] = f.RiskLevel
	}
	if f.Gender != "" {
		base["gender"] = f.Gender
	}
	return base
}

func (r *repoMongo) FindByCreator(ctx context.Context, userID string) ([]*Record, error) {
	return r.find(ctx, bson.M{"created_by": userID})
}

func (r *repoMongo) find(ctx context.Context, filter bson.M) ([]*Record, error) {
	cursor, err := r.patients.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*Record
	for cursor.Next(ctx) {
		doc := &recordDoc{}
		if err := cursor.Decode(doc); err != nil {
			return nil, err
		}
		records = append(records, doc.toRecord())
	}
	return records, cursor.Err()
}

func (r *repoMongo) Update(ctx context.Context, rec *Record) error {
	oid, err := primitive.ObjectIDFromHex(rec.ID)
	if err != nil {
		return errs.ErrNotFound
	}
	rec.UpdatedAt = time.Now().UTC()

	res, err := r.patients.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"gender":             rec.Gender,
		"age":                rec.Age,
		"hypertension":       rec.Hypertension,
		"heart_disease":      rec.HeartDisease,
		"ever_married":       rec.EverMarried,
		"work_type":          rec.WorkType,
		"residence_type":     rec.ResidenceType,
		"avg_glucose_level":  rec.AvgGlucoseLevel,
		"bmi":                rec.BMI,
		"smoking_status":     rec.SmokingStatus,
		"stroke":             rec.Stroke,
		"stroke_risk":        rec.StrokeRisk,
		"risk_level":         rec.RiskLevel,
		"assigned_doctor_id": rec.AssignedDoctor,
		"updated_at":         rec.UpdatedAt,
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
	res, err := r.patients.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	// History rides along with its record.
	_, err = r.history.DeleteMany(ctx, bson.M{"patient_id": id})
	return err
}

func (r *repoMongo) CountByRiskLevel(ctx context.Context, level string) (int, error) {
	count, err := r.patients.CountDocuments(ctx, bson.M{"risk_level": level})
	return int(count), err
}

type historyDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	PatientID   string             `bson:"patient_id"`
	RecordType  string             `bson:"record_type"`
	Description string             `bson:"description"`
	DoctorID    *string            `bson:"doctor_id,omitempty"`
	DoctorName  *string            `bson:"doctor_name,omitempty"`
	Medications *string            `bson:"medications,omitempty"`
	Notes       *string            `bson:"notes,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (r *repoMongo) AddHistory(ctx context.Context, h *HistoryRecord) error {
	doc := &historyDoc{
		PatientID:   h.PatientID,
		RecordType:  h.RecordType,
		Description: h.Description,
		DoctorID:    h.DoctorID,
		DoctorName:  h.DoctorName,
		Medications: h.Medications,
		Notes:       h.Notes,
		CreatedAt:   time.Now().UTC(),
	}
	res, err := r.history.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	h.ID = res.InsertedID.(primitive.ObjectID).Hex()
	h.CreatedAt = doc.CreatedAt
	return nil
}

func (r *repoMongo) HistoryForPatient(ctx context.Context, patientID string) ([]*HistoryRecord, error) {
	cursor, err := r.history.Find(ctx, bson.M{"patient_id": patientID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var history []*HistoryRecord
	for cursor.Next(ctx) {
		doc := &historyDoc{}
		if err := cursor.Decode(doc); err != nil {
			return nil, err
		}
		history = append(history, &HistoryRecord{
			ID:          doc.ID.Hex(),
			PatientID:   doc.PatientID,
			RecordType:  doc.RecordType,
			Description: doc.Description,
			DoctorID:    doc.DoctorID,
			DoctorName:  doc.DoctorName,
			Medications: doc.Medications,
			Notes:       doc.Notes,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return history, cursor.Err()
}
