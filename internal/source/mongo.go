package source

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// objectDateField orders and bounds the unprocessed-record query.
	objectDateField = "uploadedAt"
	// processedMarkerField marks records an earlier deployment already
	// handled. The pipeline itself never writes it; absence means "not yet
	// processed".
	processedMarkerField = "processedDate"
	// userCollection holds inspector identities.
	userCollection = "_User"
)

// MongoSource reads source records from a MongoDB inspection database.
type MongoSource struct {
	db         *mongo.Database
	systemType string
	batchLimit int
}

// Connect opens a MongoDB connection and returns the database handle plus a
// cleanup function.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to source database: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping source database: %w", err)
	}
	cleanup := func() {
		_ = client.Disconnect(context.Background())
	}
	return client.Database(dbName), cleanup, nil
}

// NewMongoSource creates a source over an open database handle.
func NewMongoSource(db *mongo.Database, systemType string) *MongoSource {
	return &MongoSource{db: db, systemType: systemType}
}

// WithBatchLimit caps the records returned per FindUnprocessed call. Zero
// means unlimited. Records beyond the cap stay unprocessed and are picked up
// by the next run.
func (s *MongoSource) WithBatchLimit(limit int) *MongoSource {
	s.batchLimit = limit
	return s
}

// sourceDoc is the superset of fields the pipeline reads across all
// collections. Unknown fields are ignored.
type sourceDoc struct {
	ID            string       `bson:"_id"`
	UploadedAt    time.Time    `bson:"uploadedAt"`
	Project       string       `bson:"project,omitempty"`
	UserID        string       `bson:"userId,omitempty"`
	InspectionID  string       `bson:"inspectionId,omitempty"`
	PInspection   string       `bson:"_p_inspection,omitempty"`
	ObservationID string       `bson:"observationId,omitempty"`
	PObservation  string       `bson:"_p_observation,omitempty"`
	Title         string       `bson:"title,omitempty"`
	Requirement   string       `bson:"requirement,omitempty"`
	Coordinate    *Coordinates `bson:"coordinate,omitempty"`
}

// FindUnprocessed implements Source. Records lacking the processed marker
// and newer than the watermark are returned ascending by object date. The
// query is read-only: recurrence is prevented by the watermark, not by
// writing a marker back.
func (s *MongoSource) FindUnprocessed(ctx context.Context, collection Collection, since *time.Time) ([]Record, error) {
	filter := bson.M{processedMarkerField: bson.M{"$exists": false}}
	if since != nil {
		filter[objectDateField] = bson.M{"$gt": *since}
	}

	opts := options.Find().SetSort(bson.D{{Key: objectDateField, Value: 1}})
	if s.batchLimit > 0 {
		opts.SetLimit(int64(s.batchLimit))
	}
	cur, err := s.db.Collection(string(collection)).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s collection: %w", collection, err)
	}
	defer cur.Close(ctx)

	var records []Record
	for cur.Next(ctx) {
		var doc sourceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s record: %w", collection, err)
		}
		records = append(records, s.toRecord(collection, doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s records: %w", collection, err)
	}
	return records, nil
}

// toRecord maps a raw document onto the typed record model, translating the
// store's prefixed parent pointers into the ParentID/ParentRef pair.
func (s *MongoSource) toRecord(collection Collection, doc sourceDoc) Record {
	rec := Record{
		SystemType: s.systemType,
		Collection: collection,
		ObjectID:   doc.ID,
		ObjectDate: doc.UploadedAt,
		UploadDate: doc.UploadedAt,
	}

	switch collection.Kind() {
	case KindInspection:
		rec.ProjectName = doc.Project
		rec.InspectorRef = doc.UserID
	case KindObservation:
		rec.ParentID = doc.InspectionID
		rec.ParentRef = doc.PInspection
		rec.Title = doc.Title
		rec.Requirement = doc.Requirement
		rec.Coordinates = doc.Coordinate
	case KindMedia:
		rec.ParentID = doc.ObservationID
		rec.ParentRef = doc.PObservation
	}
	return rec
}

// InspectorDetails implements Source by looking the inspector up in the user
// collection.
func (s *MongoSource) InspectorDetails(ctx context.Context, inspectorRef string) (Inspector, error) {
	var user struct {
		FirstName   string `bson:"firstName"`
		LastName    string `bson:"lastName"`
		PublicEmail string `bson:"publicEmail"`
	}
	err := s.db.Collection(userCollection).FindOne(ctx, bson.M{"_id": inspectorRef}).Decode(&user)
	if err != nil {
		return Inspector{}, fmt.Errorf("failed to resolve inspector %q: %w", inspectorRef, err)
	}
	return Inspector{
		Name:  user.FirstName + " " + user.LastName,
		Email: user.PublicEmail,
	}, nil
}
