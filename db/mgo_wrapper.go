// Package db
package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mgo is a thin collection-scoped wrapper around the official driver.
type Mgo struct {
	DB  *mongo.Database
	col *mongo.Collection
}

func (w *Mgo) Database(db *mongo.Database) {
	w.DB = db
}

// C returns a fresh handle scoped to the named collection. The receiver is
// shared across worker goroutines, so the handle must not live on it.
func (w *Mgo) C(name string) *Mgo {
	return &Mgo{DB: w.DB, col: w.DB.Collection(name)}
}

func (w *Mgo) Ping() error {
	return w.DB.Client().Ping(context.Background(), nil)
}

func (w *Mgo) EnsureIndex(model []mongo.IndexModel) error {
	var err error
	opts := options.CreateIndexes().SetMaxTime(5 * time.Second)
	if len(model) == 1 {
		_, err = w.col.Indexes().CreateOne(context.Background(), model[0], opts)
	} else if len(model) > 1 {
		_, err = w.col.Indexes().CreateMany(context.Background(), model, opts)
	}
	return err
}

func (w *Mgo) Update(filter interface{}, update interface{},
	opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return w.col.UpdateOne(context.Background(), filter, update, opts...)
}

func (w *Mgo) Upsert(filter interface{}, update interface{},
	opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	opts = append(opts, options.Update().SetUpsert(true))
	return w.col.UpdateOne(context.Background(), filter, bson.M{"$set": update}, opts...)
}

// UpsertRaw applies the given update operators as-is, so callers can combine
// $set with $max and friends in one atomic round trip.
func (w *Mgo) UpsertRaw(filter interface{}, update interface{},
	opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	opts = append(opts, options.Update().SetUpsert(true))
	return w.col.UpdateOne(context.Background(), filter, update, opts...)
}

func (w *Mgo) Remove(filter interface{},
	opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return w.col.DeleteOne(context.Background(), filter, opts...)
}

func (w *Mgo) RemoveAll(filter interface{},
	opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return w.col.DeleteMany(context.Background(), filter, opts...)
}

func (w *Mgo) Find(filter interface{},
	opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return w.col.Find(context.Background(), filter, opts...)
}

func (w *Mgo) FindOne(filter interface{},
	opts ...*options.FindOneOptions) *mongo.SingleResult {
	return w.col.FindOne(context.Background(), filter, opts...)
}

func (w *Mgo) Insert(document interface{},
	opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return w.col.InsertOne(context.Background(), document, opts...)
}

func (w *Mgo) BulkUpsert(models []mongo.WriteModel,
	opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	opts = append(opts, options.BulkWrite().SetOrdered(false))
	return w.col.BulkWrite(context.Background(), models, opts...)
}

func (w *Mgo) Count(filter interface{},
	opts ...*options.CountOptions) (int64, error) {
	return w.col.CountDocuments(context.Background(), filter, opts...)
}
