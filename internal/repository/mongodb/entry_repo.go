package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/repository"
)

type entryDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toEntryDoc(e *model.Entry) entryDoc {
	return entryDoc{
		ID:        e.ID.String(),
		UserID:    e.UserID.String(),
		Title:     e.Title,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (d entryDoc) toModel() (*model.Entry, error) {
	id, err := uuid.FromString(d.ID)
	if err != nil {
		return nil, fmt.Errorf("entry %q: bad id: %w", d.ID, err)
	}
	uid, err := uuid.FromString(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("entry %q: bad owner: %w", d.ID, err)
	}
	return &model.Entry{
		ID:        id,
		UserID:    uid,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func ownedBy(userID, id uuid.UUID) bson.D {
	return bson.D{{Key: "_id", Value: id.String()}, {Key: "userId", Value: userID.String()}}
}

// EntryRepo implements EntryRepository on a MongoDB collection.
type EntryRepo struct{ coll *mongo.Collection }

// NewEntryRepo constructs an entry repository.
func NewEntryRepo(db *DB) *EntryRepo { return &EntryRepo{coll: db.db.Collection(entriesColl)} }

func (r *EntryRepo) Create(ctx context.Context, e *model.Entry) error {
	if _, err := r.coll.InsertOne(ctx, toEntryDoc(e)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *EntryRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error) {
	var d entryDoc
	if err := r.coll.FindOne(ctx, ownedBy(userID, id)).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	return d.toModel()
}

// Update applies fn to the current document and replaces it, provided nobody
// touched it in between (compare on updatedAt).
func (r *EntryRepo) Update(ctx context.Context, userID, id uuid.UUID, fn repository.EntryMutator) (*model.Entry, error) {
	cur, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	seen := cur.UpdatedAt
	if err := fn(cur); err != nil {
		return nil, err
	}
	cur.ID, cur.UserID = id, userID
	filter := append(ownedBy(userID, id), bson.E{Key: "updatedAt", Value: seen})
	res, err := r.coll.ReplaceOne(ctx, filter, toEntryDoc(cur))
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, errs.ErrVersionConflict
	}
	return cur, nil
}

func (r *EntryRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, ownedBy(userID, id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *EntryRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.D{{Key: "userId", Value: userID.String()}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []entryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Entry, 0, len(docs))
	for _, d := range docs {
		e, err := d.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *EntryRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "userId", Value: userID.String()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
