// Package mongostore tracks installed modules in a MongoDB collection.
//
// Hosts that run several instances against shared storage use it instead of
// a modules directory. Each document is one installed (id, version):
//
//	{
//	  "_id": "Acme.Orders@1.2.0",
//	  "id": "Acme.Orders",
//	  "version": "1.2.0",
//	  "dependencies": [{"id": "Acme.Core", "version": "^1.0"}],
//	  "errors": ["activation failed"],
//	  "installed_at": ISODate(...)
//	}
package mongostore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/source"
)

// Defaults for Config.
const (
	DefaultDatabase   = "modcat"
	DefaultCollection = "installed_modules"
)

// Config locates the collection.
type Config struct {
	URI        string // mongodb://host:27017
	Database   string
	Collection string
}

// Document is the stored form of an installed module.
type Document struct {
	module.Manifest `bson:",inline"`

	Key         string    `bson:"_id"`
	Errors      []string  `bson:"errors,omitempty"`
	InstalledAt time.Time `bson:"installed_at"`
}

// NewDocument converts a record to its stored form.
func NewDocument(r *module.Record, installedAt time.Time) Document {
	return Document{
		Key:         r.String(),
		Manifest:    module.ManifestOf(r),
		Errors:      append([]string(nil), r.Errors...),
		InstalledAt: installedAt.UTC(),
	}
}

// Record converts the document back to an installed record.
func (d *Document) Record() (*module.Record, error) {
	r, err := d.Manifest.Record()
	if err != nil {
		return nil, err
	}
	r.Errors = append(r.Errors, d.Errors...)
	r.Installed = true
	r.InitializationMode = module.Immediate
	return r, nil
}

// Store is a source.Installed backed by MongoDB.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *log.Logger
	now    func() time.Time
}

// Open connects to MongoDB and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return newStore(client, client.Database(cfg.Database).Collection(cfg.Collection), logger), nil
}

func newStore(client *mongo.Client, coll *mongo.Collection, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{client: client, coll: coll, logger: logger, now: time.Now}
}

// FetchInstalled implements source.Installed. Documents that no longer
// decode to a valid record are skipped with a warning.
func (s *Store) FetchInstalled(ctx context.Context) ([]*module.Record, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInstalledSource, err, "query installed modules")
	}
	var docs []Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInstalledSource, err, "read installed modules")
	}

	records := make([]*module.Record, 0, len(docs))
	for i := range docs {
		r, err := docs[i].Record()
		if err != nil {
			s.logger.Warn("skipping module", "key", docs[i].Key, "err", err)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// Install records r as installed, replacing any previous document for the
// same identity.
func (s *Store) Install(ctx context.Context, r *module.Record) error {
	doc := NewDocument(r, s.now())
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInstalledSource, err, "install %s", doc.Key)
	}
	return nil
}

// Uninstall removes the document for id@version. It reports whether a
// document was removed.
func (s *Store) Uninstall(ctx context.Context, id module.Identity) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInstalledSource, err, "uninstall %s", id)
	}
	return res.DeletedCount > 0, nil
}

// SetErrors replaces the load errors stored for id@version.
func (s *Store) SetErrors(ctx context.Context, id module.Identity, msgs []string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{"errors": msgs}})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInstalledSource, err, "update %s", id)
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodeModuleNotFound, "module %s is not installed", id)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ source.Installed = (*Store)(nil)
