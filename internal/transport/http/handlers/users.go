package http_handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/user-service/internal/application/users"
	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/transport/http/dto"
	"github.com/baechuer/user-service/internal/transport/http/middleware"
	"github.com/baechuer/user-service/internal/transport/http/response"
)

// UsersHandler serves /users. Ownership and role rules live in users.Service;
// the router only guarantees an authenticated caller.
type UsersHandler struct {
	svc      *users.Service
	writeErr response.WriteErrFunc
}

func NewUsersHandler(svc *users.Service, writeErr response.WriteErrFunc) *UsersHandler {
	if writeErr == nil {
		writeErr = response.WriteError
	}
	return &UsersHandler{svc: svc, writeErr: writeErr}
}

func actorFrom(r *http.Request) (users.Actor, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return users.Actor{}, false
	}
	return users.Actor{ID: id.UserID, Role: id.Role}, true
}

// targetID reads {id}; "me" is an alias for the caller.
func targetID(r *http.Request, actor users.Actor) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return "", domain.ErrMissingField("id")
	}
	if id == "me" {
		return actor.ID, nil
	}
	return id, nil
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeErr(w, r, domain.ErrTokenMissing())
		return
	}

	f, err := dto.ParseListUsersQuery(r.URL.Query())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	page, err := h.svc.List(r.Context(), actor, f)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.OK(w, dto.NewUserPage(page))
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeErr(w, r, domain.ErrTokenMissing())
		return
	}
	id, err := targetID(r, actor)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	u, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.OK(w, dto.NewUserView(u))
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeErr(w, r, domain.ErrTokenMissing())
		return
	}
	id, err := targetID(r, actor)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	var req dto.UpdateUserRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErr(w, r, err)
		return
	}

	u, err := h.svc.Update(r.Context(), actor, id, req.Input())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.OK(w, dto.NewUserView(u))
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeErr(w, r, domain.ErrTokenMissing())
		return
	}
	id, err := targetID(r, actor)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.Message(w, "user deleted")
}

func (h *UsersHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *UsersHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *UsersHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeErr(w, r, domain.ErrTokenMissing())
		return
	}
	id, err := targetID(r, actor)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	u, err := h.svc.SetActive(r.Context(), actor, id, active)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.OK(w, dto.NewUserView(u))
}
