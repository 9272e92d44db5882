package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users   map[int64]*users.User
	lookups map[string]int64 // username lookup key to user id
	nextID  int64
	lock    sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:   make(map[int64]*users.User),
		lookups: make(map[string]int64),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.lookups[user.UsernameLookup]; ok {
		return errors.ErrUsernameExists
	}
	ur.nextID++
	user.ID = ur.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	stored := *user
	ur.users[user.ID] = &stored
	ur.lookups[user.UsernameLookup] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id int64) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (ur *FakeUserRepo) GetByUsernameLookup(ctx context.Context, lookup string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.lookups[lookup]
	ur.lock.RUnlock()
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return ur.GetByID(ctx, id)
}

func (ur *FakeUserRepo) ExistsByUsernameLookup(_ context.Context, lookup string) (bool, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	_, ok := ur.lookups[lookup]
	return ok, nil
}

// Count returns the number of stored users.
func (ur *FakeUserRepo) Count() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}
