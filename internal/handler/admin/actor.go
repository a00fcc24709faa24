package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zerotrust/platform/internal/auth"
	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/handler"
	"github.com/zerotrust/platform/internal/service"
)

// actorFrom builds the acting admin from the authenticated request.
func actorFrom(r *http.Request) (service.Actor, error) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		return service.Actor{}, domain.ErrUnauthorized("no auth context")
	}
	id, err := claims.UserID()
	if err != nil {
		return service.Actor{}, domain.ErrUnauthorized("malformed subject")
	}
	return service.Actor{UserID: id, Email: claims.Email, IP: handler.ClientIP(r)}, nil
}

func idParam(r *http.Request, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("invalid " + entity + " id")
	}
	return id, nil
}
