package users

import "context"

// Reader is the read side of the credential store.
type Reader interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsernameLookup(ctx context.Context, lookup string) (*User, error)
}

// Repo persists users. Create must enforce uniqueness of UsernameLookup and
// report a violation as errors.ErrUsernameExists. Missing rows are reported as
// errors.ErrUserNotFound.
type Repo interface {
	Reader
	Create(ctx context.Context, user *User) error
	ExistsByUsernameLookup(ctx context.Context, lookup string) (bool, error)
}
