package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alcyxob/attachment-service/internal/domain"
	"alcyxob/attachment-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultAttachmentCollection = "attachments"

// mongoAttachmentRepository implements repository.AttachmentRepository.
// Documents are schemaless bson.M: the owner id lives under a field name
// chosen per deployment and custom fields sit next to the built-in ones.
type mongoAttachmentRepository struct {
	collection    *mongo.Collection
	entityIDField string
}

// NewMongoAttachmentRepository creates a new Attachment repository backed by MongoDB.
func NewMongoAttachmentRepository(db *mongo.Database, collection, entityIDField string) repository.AttachmentRepository {
	if collection == "" {
		collection = defaultAttachmentCollection
	}
	return &mongoAttachmentRepository{
		collection:    db.Collection(collection),
		entityIDField: entityIDField,
	}
}

// Insert stores the record and sets a.ID to the generated id.
func (r *mongoAttachmentRepository) Insert(ctx context.Context, a *domain.Attachment) (string, error) {
	if a.DateCreated.IsZero() {
		a.DateCreated = time.Now().UTC()
	}

	oid := primitive.NewObjectID()
	doc := toDocument(a, r.entityIDField)
	doc["_id"] = oid

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrInsertFailed, err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("failed to convert inserted ID")
	}

	a.ID = insertedID.Hex()
	return a.ID, nil
}

func (r *mongoAttachmentRepository) Find(ctx context.Context, q repository.Query) ([]domain.Attachment, error) {
	filter, ok := buildFilter(q.Filter)
	if !ok {
		return []domain.Attachment{}, nil
	}

	findOptions := options.Find()
	if q.SortField != "" {
		direction := 1
		if q.SortDesc {
			direction = -1
		}
		findOptions.SetSort(bson.D{{Key: documentField(q.SortField), Value: direction}})
	}
	if q.Skip > 0 {
		findOptions.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		findOptions.SetLimit(q.Limit)
	}

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rows := []domain.Attachment{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rows = append(rows, fromDocument(doc, r.entityIDField))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoAttachmentRepository) Remove(ctx context.Context, f repository.Filter) (int64, error) {
	filter, ok := buildFilter(f)
	if !ok {
		return 0, nil
	}
	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrDeleteFailed, err)
	}
	return result.DeletedCount, nil
}

func (r *mongoAttachmentRepository) Count(ctx context.Context, f repository.Filter) (int64, error) {
	filter, ok := buildFilter(f)
	if !ok {
		return 0, nil
	}
	return r.collection.CountDocuments(ctx, filter)
}

// EnsureAttachmentIndexes creates the indexes used by the list and get
// queries, and the TTL index that drops records once expireAt has passed.
func EnsureAttachmentIndexes(ctx context.Context, db *mongo.Database, collection, entityIDField string) error {
	if collection == "" {
		collection = defaultAttachmentCollection
	}
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: entityIDField, Value: 1}, {Key: domain.FieldDateCreated, Value: -1}},
			Options: options.Index(),
		},
		{
			// Records without expireAt are never removed
			Keys:    bson.D{{Key: domain.FieldExpireAt, Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes)
	return err
}

// documentField maps a public field name to its document key.
func documentField(name string) string {
	if name == domain.FieldID {
		return "_id"
	}
	return name
}

// buildFilter translates a repository filter. It returns false when the
// filter cannot match anything, e.g. an id that is not an ObjectID.
func buildFilter(f repository.Filter) (bson.M, bool) {
	out := bson.M{}
	for key, value := range f {
		if key != domain.FieldID {
			out[documentField(key)] = filterValue(value)
			continue
		}

		ids := idValues(value)
		if len(ids) == 0 {
			return nil, false
		}
		if len(ids) == 1 {
			out["_id"] = ids[0]
		} else {
			out["_id"] = bson.M{"$in": ids}
		}
	}
	return out, true
}

func filterValue(value any) any {
	switch v := value.(type) {
	case []string:
		return bson.M{"$in": v}
	case []any:
		return bson.M{"$in": v}
	default:
		return v
	}
}

// idValues keeps the values that parse as ObjectIDs.
func idValues(value any) []primitive.ObjectID {
	var raw []any
	switch v := value.(type) {
	case []string:
		for _, s := range v {
			raw = append(raw, s)
		}
	case []any:
		raw = v
	default:
		raw = []any{v}
	}

	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, item := range raw {
		switch id := item.(type) {
		case primitive.ObjectID:
			ids = append(ids, id)
		case string:
			if oid, err := primitive.ObjectIDFromHex(id); err == nil {
				ids = append(ids, oid)
			}
		}
	}
	return ids
}

func toDocument(a *domain.Attachment, entityIDField string) bson.M {
	doc := bson.M{}
	for k, v := range a.Custom {
		doc[k] = v
	}
	doc[entityIDField] = a.OwnerID
	doc[domain.FieldName] = a.Name
	doc[domain.FieldPath] = a.Path
	doc[domain.FieldSize] = a.Size
	doc[domain.FieldMimeType] = a.MimeType
	doc[domain.FieldType] = string(a.Type)
	doc[domain.FieldDateCreated] = a.DateCreated
	if a.ExpireAt != nil {
		doc[domain.FieldExpireAt] = *a.ExpireAt
	}
	return doc
}

func fromDocument(doc bson.M, entityIDField string) domain.Attachment {
	var a domain.Attachment
	for key, value := range doc {
		switch key {
		case "_id":
			if oid, ok := value.(primitive.ObjectID); ok {
				a.ID = oid.Hex()
			} else {
				a.ID = fmt.Sprint(value)
			}
		case entityIDField:
			a.OwnerID = fmt.Sprint(value)
		case domain.FieldName:
			a.Name, _ = value.(string)
		case domain.FieldPath:
			a.Path, _ = value.(string)
		case domain.FieldSize:
			a.Size = int64Ptr(value)
		case domain.FieldMimeType:
			if s, ok := value.(string); ok {
				a.MimeType = &s
			}
		case domain.FieldType:
			s, _ := value.(string)
			a.Type = domain.FileType(s)
		case domain.FieldDateCreated:
			if t, ok := timeValue(value); ok {
				a.DateCreated = t
			}
		case domain.FieldExpireAt:
			if t, ok := timeValue(value); ok {
				a.ExpireAt = &t
			}
		default:
			if a.Custom == nil {
				a.Custom = map[string]any{}
			}
			a.Custom[key] = normalize(value)
		}
	}
	return a
}

func int64Ptr(value any) *int64 {
	var n int64
	switch v := value.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case float64:
		n = int64(v)
	default:
		return nil
	}
	return &n
}

func timeValue(value any) (time.Time, bool) {
	switch v := value.(type) {
	case primitive.DateTime:
		return v.Time().UTC(), true
	case time.Time:
		return v.UTC(), true
	}
	return time.Time{}, false
}

// normalize turns driver types in custom fields into plain Go values so
// they render as JSON the way the client sent them.
func normalize(value any) any {
	switch v := value.(type) {
	case bson.M:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(v))
		for _, e := range v {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.ObjectID:
		return v.Hex()
	default:
		return v
	}
}
