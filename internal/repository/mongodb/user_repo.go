package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
)

type sessionDoc struct {
	TokenHash  string    `bson:"tokenHash"`
	CreatedAt  time.Time `bson:"createdAt"`
	LastUsedAt time.Time `bson:"lastUsedAt"`
	ExpiresAt  time.Time `bson:"expiresAt"`
	UserAgent  string    `bson:"userAgent,omitempty"`
	IP         string    `bson:"ip,omitempty"`
}

type userDoc struct {
	ID        string       `bson:"_id"`
	Email     string       `bson:"email"`
	PwdHash   string       `bson:"passwordHash"`
	Sessions  []sessionDoc `bson:"sessions"`
	Ver       int64        `bson:"ver"`
	CreatedAt time.Time    `bson:"createdAt"`
	UpdatedAt time.Time    `bson:"updatedAt"`
}

func toUserDoc(u *model.User) userDoc {
	d := userDoc{
		ID:        u.ID.String(),
		Email:     u.Email,
		PwdHash:   u.PwdHash,
		Sessions:  make([]sessionDoc, 0, len(u.Sessions)),
		Ver:       u.Ver,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	for _, s := range u.Sessions {
		d.Sessions = append(d.Sessions, sessionDoc(s))
	}
	return d
}

func (d userDoc) toModel() (*model.User, error) {
	id, err := uuid.FromString(d.ID)
	if err != nil {
		return nil, fmt.Errorf("user %q: bad id: %w", d.ID, err)
	}
	u := &model.User{
		ID:        id,
		Email:     d.Email,
		PwdHash:   d.PwdHash,
		Sessions:  make([]model.Session, 0, len(d.Sessions)),
		Ver:       d.Ver,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, s := range d.Sessions {
		u.Sessions = append(u.Sessions, model.Session(s))
	}
	return u, nil
}

// UserRepo implements UserRepository on a MongoDB collection.
type UserRepo struct{ coll *mongo.Collection }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{coll: db.db.Collection(usersColl)} }

func (r *UserRepo) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var d userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	return d.toModel()
}

// Create inserts a new account document with version 1.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	d := toUserDoc(u)
	d.Ver = 1
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	u.Ver = 1
	return nil
}

// GetByID loads an account by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

// GetByEmail loads an account by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// GetBySessionHash loads the account holding a session with tokenHash.
func (r *UserRepo) GetBySessionHash(ctx context.Context, tokenHash string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "sessions.tokenHash", Value: tokenHash}})
}

// Save replaces the document if it is still at u.Ver.
func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	d := toUserDoc(u)
	d.Ver = u.Ver + 1
	res, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: d.ID}, {Key: "ver", Value: u.Ver}}, d)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrVersionConflict
	}
	u.Ver = d.Ver
	return nil
}

// Delete removes an account document.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}
