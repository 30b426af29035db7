package dbclient

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"datadesk/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoConnector implements Connector for a MongoDB collection.
type mongoConnector struct {
	client *mongo.Client
	dbName string
}

func newMongoConnector(cfg domain.TableSettings, password string) (*mongoConnector, error) {
	uri := buildMongoURI(cfg, password)

	dbName := cfg.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Printf("[MONGO] Connecting with URI: %s", logURI)
	log.Printf("[MONGO] Database: %s", dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		log.Printf("[MONGO] Connect failed: %v", err)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoConnector{client: client, dbName: dbName}, nil
}

// buildMongoURI uses cfg.Host as-is when it is already a connection string
// (Atlas mongodb+srv:// or mongodb://), otherwise builds one from host:port.
func buildMongoURI(cfg domain.TableSettings, password string) string {
	if strings.HasPrefix(cfg.Host, "mongodb+srv://") || strings.HasPrefix(cfg.Host, "mongodb://") {
		uri := cfg.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	if cfg.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Username, password, cfg.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", cfg.Host, port)
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params, or "test".
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	if at := strings.LastIndex(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return "test"
	}
	path := rest[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	if path == "" {
		return "test"
	}
	return path
}

// parseObjectID parses an ObjectID from either raw hex "67b8f1..."
// or the wrapped format ObjectID("67b8f1...").
func parseObjectID(s string) (bson.ObjectID, error) {
	if oid, err := bson.ObjectIDFromHex(s); err == nil {
		return oid, nil
	}
	if strings.HasPrefix(s, "ObjectID(\"") && strings.HasSuffix(s, "\")") {
		hex := s[len("ObjectID(\"") : len(s)-len("\")")]
		return bson.ObjectIDFromHex(hex)
	}
	return bson.ObjectID{}, fmt.Errorf("invalid ObjectID: %s", s)
}

// idFilter matches idField == id, turning hex strings into ObjectIDs for _id.
func idFilter(idField string, id any) bson.M {
	if s, ok := id.(string); ok && idField == "_id" {
		if oid, err := parseObjectID(s); err == nil {
			return bson.M{idField: oid}
		}
	}
	return bson.M{idField: id}
}

func (m *mongoConnector) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) Select(ctx context.Context, table, orderBy string) ([]domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.Find()
	if orderBy != "" {
		opts.SetSort(bson.D{{Key: orderBy, Value: 1}})
	}
	cursor, err := m.client.Database(m.dbName).Collection(table).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	records := []domain.Record{}
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		records = append(records, docToRecord(doc))
	}
	if err := cursor.Err(); err != nil {
		log.Printf("[MONGO] Cursor error: %v", err)
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	log.Printf("[MONGO] Fetched %d docs from %s", len(records), table)
	return records, nil
}

func (m *mongoConnector) Insert(ctx context.Context, table, idField string, rec domain.Record) (domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := m.client.Database(m.dbName).Collection(table).InsertOne(ctx, recordToDoc(rec))
	if err != nil {
		return domain.Record{}, err
	}
	if idField == "" {
		idField = "_id"
	}
	out := domain.NewRecord(domain.Field{Name: idField, Value: bsonValue(res.InsertedID)})
	return out.Merge(rec), nil
}

func (m *mongoConnector) Update(ctx context.Context, table, idField string, id any, changes domain.Record) error {
	if changes.Len() == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := idFilter(idField, id)
	log.Printf("[MONGO] Update: filter=%v changes=%v", filter, changes.Map())

	res, err := m.client.Database(m.dbName).Collection(table).UpdateOne(ctx, filter, bson.M{"$set": recordToDoc(changes)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %v", ErrRowNotFound, id)
	}
	return nil
}

func (m *mongoConnector) Delete(ctx context.Context, table, idField string, id any) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := m.client.Database(m.dbName).Collection(table).DeleteOne(ctx, idFilter(idField, id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %v", ErrRowNotFound, id)
	}
	return nil
}

func (m *mongoConnector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func recordToDoc(rec domain.Record) bson.D {
	doc := make(bson.D, 0, rec.Len())
	for _, f := range rec.Fields() {
		doc = append(doc, bson.E{Key: f.Name, Value: f.Value.Interface()})
	}
	return doc
}

func docToRecord(doc bson.D) domain.Record {
	fields := make([]domain.Field, 0, len(doc))
	for _, elem := range doc {
		fields = append(fields, domain.Field{Name: elem.Key, Value: bsonValue(elem.Value)})
	}
	return domain.NewRecord(fields...)
}

// bsonValue flattens a BSON value into a record Value.
func bsonValue(v any) domain.Value {
	switch t := v.(type) {
	case bson.ObjectID:
		return domain.Text(t.Hex())
	case bson.DateTime:
		return domain.Text(t.Time().UTC().Format(time.RFC3339))
	case bson.Decimal128:
		return domain.Text(t.String())
	case bson.D, bson.A, bson.M:
		return domain.Text(fmt.Sprintf("%v", t))
	default:
		return domain.ValueOf(t)
	}
}
