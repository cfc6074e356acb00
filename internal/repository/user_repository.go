package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
)

// UsersCollection holds one document per account, keyed by account uid.
const UsersCollection = "users"

type userDoc struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	IsAdmin   bool     `json:"is_admin"`
	EventList []string `json:"event_list"`
}

func userFromDoc(d docstore.Document) (model.User, error) {
	var p userDoc
	if err := d.Decode(&p); err != nil {
		return model.User{}, fmt.Errorf("decode user %s: %w", d.ID, err)
	}
	if p.EventList == nil {
		p.EventList = []string{}
	}
	return model.User{
		ID:        d.ID,
		Name:      p.Name,
		Email:     p.Email,
		IsAdmin:   p.IsAdmin,
		EventList: p.EventList,
		CreatedAt: d.CreatedAt,
	}, nil
}

func docFromUser(u model.User) userDoc {
	list := u.EventList
	if list == nil {
		list = []string{}
	}
	return userDoc{Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin, EventList: list}
}

// UserRepo reads and writes user documents.
type UserRepo struct {
	Store docstore.Store
}

func NewUserRepo(s docstore.Store) *UserRepo { return &UserRepo{Store: s} }

// Create stores the user under u.ID.  ErrUserExists is returned when the id
// is already taken.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := r.Store.CreateWithID(ctx, UsersCollection, u.ID, docFromUser(u)); err != nil {
		if errors.Is(err, docstore.ErrConflict) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	d, err := r.Store.Get(ctx, UsersCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	return userFromDoc(d)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	docs, err := r.Store.List(ctx, UsersCollection, docstore.Query{
		Filters: []docstore.Filter{{Field: "email", Value: email}},
		Limit:   1,
	})
	if err != nil {
		return model.User{}, err
	}
	if len(docs) == 0 {
		return model.User{}, ErrUserNotFound
	}
	return userFromDoc(docs[0])
}

// SetAdmin flips the administrative flag.
func (r *UserRepo) SetAdmin(ctx context.Context, id string, admin bool) error {
	if err := r.Store.Update(ctx, UsersCollection, id, map[string]any{"is_admin": admin}); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// Delete removes a user document.  A missing document is not an error.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if err := r.Store.Delete(ctx, UsersCollection, id); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	return nil
}

// GetTx reads a user inside a transaction.
func (r *UserRepo) GetTx(tx *docstore.Txn, id string) (model.User, error) {
	d, err := tx.Get(UsersCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	return userFromDoc(d)
}

// PutTx stages a full replacement of a user read through the same tx.
func (r *UserRepo) PutTx(tx *docstore.Txn, u model.User) error {
	return tx.Set(UsersCollection, u.ID, docFromUser(u))
}
