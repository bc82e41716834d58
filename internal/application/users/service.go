package users

import (
	"context"
	"strings"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
)

type Service struct {
	repo  Repo
	audit func(action string, fields map[string]string)
}

func NewService(repo Repo) *Service {
	return &Service{
		repo:  repo,
		audit: func(string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func domainCode(err error) string {
	if de := domain.AsDomain(err); de != nil {
		return de.Code
	}
	return ""
}

func (s *Service) auditFn(action string, actor Actor, targetID string) func(result string, err error) {
	return func(result string, err error) {
		fields := map[string]string{
			"actor_id":   actor.ID,
			"actor_role": string(actor.Role),
			"target_id":  targetID,
			"result":     result,
		}
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		s.audit(action, fields)
	}
}

// require returns insufficient_permissions unless actor satisfies one of roles.
func require(actor Actor, roles ...domain.Role) error {
	if domain.Satisfies(actor.Role, roles...) {
		return nil
	}
	return domain.ErrInsufficientPermissions(domain.RoleNames(roles), string(actor.Role))
}

// List returns a page of users (moderator or admin).
func (s *Service) List(ctx context.Context, actor Actor, f ListFilter) (Page, error) {
	if err := require(actor, domain.RoleModerator); err != nil {
		return Page{}, err
	}
	if f.Role != "" && !domain.IsValidRole(string(f.Role)) {
		return Page{}, domain.ErrInvalidRole(string(f.Role))
	}
	f = f.Normalize()
	f.Search = strings.TrimSpace(f.Search)

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return Page{}, domain.AsDomain(err)
	}

	out := Page{Items: make([]domain.PublicUser, 0, len(items)), Total: total, Offset: f.Offset, Limit: f.Limit}
	for _, u := range items {
		out.Items = append(out.Items, u.Public())
	}
	return out, nil
}

// Get returns a user to themselves or to a moderator/admin.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (domain.PublicUser, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.PublicUser{}, domain.ErrMissingField("id")
	}
	if actor.ID != id {
		if err := require(actor, domain.RoleModerator); err != nil {
			return domain.PublicUser{}, err
		}
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.PublicUser{}, domain.AsDomain(err)
	}
	return u.Public(), nil
}

// Update changes profile fields. Users may edit themselves; admins may edit
// anyone and are the only ones allowed to change roles.
func (s *Service) Update(ctx context.Context, actor Actor, id string, in UpdateInput) (domain.PublicUser, error) {
	id = strings.TrimSpace(id)
	audit := s.auditFn("users.update", actor, id)

	if id == "" {
		err := domain.ErrMissingField("id")
		audit("error", err)
		return domain.PublicUser{}, err
	}
	if actor.ID != id {
		if err := require(actor, domain.RoleAdmin); err != nil {
			audit("error", err)
			return domain.PublicUser{}, err
		}
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		audit("error", err)
		return domain.PublicUser{}, domain.AsDomain(err)
	}

	changes, err := profileChanges(u, actor, in)
	if err != nil {
		audit("error", err)
		return domain.PublicUser{}, err
	}
	if changes.Empty() {
		audit("noop", nil)
		return u.Public(), nil
	}

	updated, err := s.repo.UpdateProfile(ctx, id, changes)
	if err != nil {
		audit("error", err)
		return domain.PublicUser{}, domain.AsDomain(err)
	}
	audit("success", nil)
	return updated.Public(), nil
}

// profileChanges validates in against the current record u and keeps only
// the fields that differ.
func profileChanges(u domain.User, actor Actor, in UpdateInput) (ProfileChanges, error) {
	var c ProfileChanges
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if err := auth.ValidateName("firstName", v); err != nil {
			return c, err
		}
		if v != u.FirstName {
			c.FirstName = &v
		}
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if err := auth.ValidateName("lastName", v); err != nil {
			return c, err
		}
		if v != u.LastName {
			c.LastName = &v
		}
	}
	if in.Email != nil {
		v := domain.NormalizeEmail(*in.Email)
		if err := auth.ValidateEmail(v); err != nil {
			return c, err
		}
		if v != u.Email {
			c.Email = &v
		}
	}
	if in.Role != nil && *in.Role != u.Role {
		if err := require(actor, domain.RoleAdmin); err != nil {
			return c, err
		}
		if !domain.IsValidRole(string(*in.Role)) {
			return c, domain.ErrInvalidRole(string(*in.Role))
		}
		if actor.ID == u.ID {
			return c, domain.ErrCannotAffectSelf()
		}
		role := *in.Role
		c.Role = &role
	}
	return c, nil
}

// Delete removes a user (admin only, never self).
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	id = strings.TrimSpace(id)
	audit := s.auditFn("users.delete", actor, id)

	if err := s.checkAdminOnOther(actor, id); err != nil {
		audit("error", err)
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		audit("error", err)
		return domain.AsDomain(err)
	}
	audit("success", nil)
	return nil
}

// SetActive activates or deactivates a user (admin only, never self).
// Deactivated users can no longer log in, refresh or use existing tokens.
func (s *Service) SetActive(ctx context.Context, actor Actor, id string, active bool) (domain.PublicUser, error) {
	id = strings.TrimSpace(id)
	action := "users.deactivate"
	if active {
		action = "users.activate"
	}
	audit := s.auditFn(action, actor, id)

	if err := s.checkAdminOnOther(actor, id); err != nil {
		audit("error", err)
		return domain.PublicUser{}, err
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		audit("error", err)
		return domain.PublicUser{}, domain.AsDomain(err)
	}
	if u.Active == active {
		audit("noop", nil)
		return u.Public(), nil
	}

	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		audit("error", err)
		return domain.PublicUser{}, domain.AsDomain(err)
	}
	audit("success", nil)
	return updated.Public(), nil
}

func (s *Service) checkAdminOnOther(actor Actor, id string) error {
	if id == "" {
		return domain.ErrMissingField("id")
	}
	if err := require(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if actor.ID == id {
		return domain.ErrCannotAffectSelf()
	}
	return nil
}
