package formschema

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stockledger/stockledger/modules/inventory/domain/fieldschema"
)

type entityDocument struct {
	DBKey    string `bson:"dbKey"`
	Label    string `bson:"label"`
	JSSource string `bson:"jsSource"`
	Required bool   `bson:"required"`
}

// formDocument is one form per relational table, keyed by tableName.
type formDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TableName string             `bson:"tableName"`
	Entities  []entityDocument   `bson:"entities"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type MongoFormRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoFormRepository(db *mongo.Database, collection string) *MongoFormRepository {
	return &MongoFormRepository{collection: db.Collection(collection), now: time.Now}
}

// Get returns the stored form, or an empty one when none was saved yet.
func (r *MongoFormRepository) Get(ctx context.Context, tableName string) (*fieldschema.Form, error) {
	var doc formDocument
	err := r.collection.FindOne(ctx, byTable(tableName)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &fieldschema.Form{TableName: tableName, Entities: []fieldschema.Entity{}}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find form %q", tableName)
	}
	return doc.toDomain(), nil
}

func (r *MongoFormRepository) Upsert(ctx context.Context, form *fieldschema.Form) (*fieldschema.Form, error) {
	doc := toDocument(form)
	doc.UpdatedAt = r.now().UTC()
	_, err := r.collection.ReplaceOne(ctx, byTable(form.TableName), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, errors.Wrapf(err, "upsert form %q", form.TableName)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the unique tableName index.
func (r *MongoFormRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tableName", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_forms_table_name"),
	})
	if err != nil {
		return errors.Wrap(err, "create forms index")
	}
	return nil
}

func byTable(tableName string) bson.D {
	return bson.D{{Key: "tableName", Value: tableName}}
}

func toDocument(f *fieldschema.Form) formDocument {
	doc := formDocument{TableName: f.TableName, Entities: make([]entityDocument, 0, len(f.Entities))}
	for _, e := range f.Entities {
		doc.Entities = append(doc.Entities, entityDocument{
			DBKey:    e.DBKey,
			Label:    e.Label,
			JSSource: e.JSSource,
			Required: e.Required,
		})
	}
	return doc
}

func (d formDocument) toDomain() *fieldschema.Form {
	f := &fieldschema.Form{
		TableName: d.TableName,
		Entities:  make([]fieldschema.Entity, 0, len(d.Entities)),
		UpdatedAt: d.UpdatedAt,
	}
	for _, e := range d.Entities {
		f.Entities = append(f.Entities, fieldschema.Entity{
			DBKey:    e.DBKey,
			Label:    e.Label,
			JSSource: e.JSSource,
			Required: e.Required,
		})
	}
	return f
}

// Ping reports whether the document store is reachable.
func Ping(db *mongo.Database) func(context.Context) error {
	return func(ctx context.Context) error {
		return db.Client().Ping(ctx, nil)
	}
}
