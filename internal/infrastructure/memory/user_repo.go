package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/user-service/internal/application/users"
	"github.com/baechuer/user-service/internal/domain"
)

// UserRepo is the default in-memory credential store. Emails are indexed in
// normalized form so uniqueness is case-insensitive.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // normalized email -> userID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = domain.NormalizeEmail(u.Email)
	if _, exists := r.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrDuplicateEmail()
	}
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if _, exists := r.byID[u.ID]; exists {
		return domain.User{}, domain.ErrInternal(nil)
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

// UpdateProfile changes only the fields set in p; credentials, the active
// flag and login history stay as stored.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p users.ProfileChanges) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}

	if p.Email != nil {
		email := domain.NormalizeEmail(*p.Email)
		if email != u.Email {
			if owner, taken := r.byEmail[email]; taken && owner != id {
				return domain.User{}, domain.ErrDuplicateEmail()
			}
			delete(r.byEmail, u.Email)
			r.byEmail[email] = id
			u.Email = email
			u.EmailVerified = false
		}
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	u.UpdatedAt = time.Now().UTC()

	r.byID[id] = u
	return u, nil
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) (domain.User, error) {
	return r.mutate(id, func(u *domain.User) { u.Active = active })
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	return nil
}

func (r *UserRepo) List(ctx context.Context, f users.ListFilter) ([]domain.User, int, error) {
	r.mu.RLock()
	matched := make([]domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		if matches(u, f) {
			matched = append(matched, u)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	f = f.Normalize()
	if f.Offset >= total {
		return []domain.User{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func matches(u domain.User, f users.ListFilter) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Active != nil && u.Active != *f.Active {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(u.Email + " " + u.FirstName + " " + u.LastName)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.mutate(userID, func(u *domain.User) { u.PasswordHash = newHash })
	return err
}

func (r *UserRepo) SetEmailVerified(ctx context.Context, userID string) error {
	_, err := r.mutate(userID, func(u *domain.User) { u.EmailVerified = true })
	return err
}

func (r *UserRepo) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.mutate(userID, func(u *domain.User) {
		u.LastLoginAt = &at
		u.UpdatedAt = at
	})
	return err
}

// mutate applies fn to the stored record under the write lock.
func (r *UserRepo) mutate(userID string, fn func(u *domain.User)) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	u.UpdatedAt = time.Now().UTC()
	fn(&u)
	r.byID[userID] = u
	return u, nil
}
