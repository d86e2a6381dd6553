package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sheetviz/access-api/internal/api/metrics"
	"github.com/sheetviz/access-api/internal/core/domain"
	"github.com/sheetviz/access-api/internal/core/ports"
)

// UserHandler serves the directory views and the approval transitions.
type UserHandler struct {
	access ports.AccessService
}

func NewUserHandler(access ports.AccessService) *UserHandler {
	return &UserHandler{access: access}
}

// Profile handles GET /api/users/profile.
//
// @Summary      Caller's own record
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /api/users/profile [get]
func (h *UserHandler) Profile(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	user, err := h.access.Profile(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// List handles GET /api/users/all and returns the raw snapshot.
//
// @Summary      List every user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/users/all [get]
func (h *UserHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	users, err := h.access.ListUsers(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Dashboard handles GET /api/users/dashboard with the projection for the caller.
//
// @Summary      Dashboard view model
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ViewModel
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/users/dashboard [get]
func (h *UserHandler) Dashboard(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	start := time.Now()
	vm, err := h.access.Dashboard(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	metrics.ProjectionDuration.WithLabelValues(string(vm.Viewer)).Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, vm)
}

// History handles GET /api/users/history/:id.
//
// @Summary      Transition history of a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {array}   domain.TransitionEvent
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/users/history/{id} [get]
func (h *UserHandler) History(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	events, err := h.access.History(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// RequestAdmin handles PUT /api/users/request-admin for the caller's own account.
//
// @Summary      Request admin access
// @Tags         transitions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  transitionResponse
// @Failure      403  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /api/users/request-admin [put]
func (h *UserHandler) RequestAdmin(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	return h.transition(c, domain.KindRequestAdmin, actor.UserID)
}

// Approve handles PUT /api/users/approve/:id.
//
// @Summary      Approve a pending admin request
// @Tags         transitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  transitionResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /api/users/approve/{id} [put]
func (h *UserHandler) Approve(c echo.Context) error {
	return h.transition(c, domain.KindApprove, c.Param("id"))
}

// RejectPending handles PUT /api/users/reject/:id.
//
// @Summary      Reject a pending admin request
// @Tags         transitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  transitionResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /api/users/reject/{id} [put]
func (h *UserHandler) RejectPending(c echo.Context) error {
	return h.transition(c, domain.KindRejectPending, c.Param("id"))
}

// RejectAdmin handles PUT /api/users/reject-admin/:id.
//
// @Summary      Demote an active admin
// @Tags         transitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  transitionResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /api/users/reject-admin/{id} [put]
func (h *UserHandler) RejectAdmin(c echo.Context) error {
	return h.transition(c, domain.KindRejectAdmin, c.Param("id"))
}

// GrantAdmin handles PUT /api/users/grant-admin/:id.
//
// @Summary      Promote a user directly to admin
// @Tags         transitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  transitionResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /api/users/grant-admin/{id} [put]
func (h *UserHandler) GrantAdmin(c echo.Context) error {
	return h.transition(c, domain.KindGrantAdmin, c.Param("id"))
}

// GrantUser handles PUT /api/users/grant-user/:id and /api/users/unreject/:id.
//
// @Summary      Restore a rejected user
// @Tags         transitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  transitionResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /api/users/grant-user/{id} [put]
func (h *UserHandler) GrantUser(c echo.Context) error {
	return h.transition(c, domain.KindGrantUser, c.Param("id"))
}

// Block handles PUT /api/users/block/:id.
//
// @Summary      Block a user or admin
// @Tags         transitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  transitionResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /api/users/block/{id} [put]
func (h *UserHandler) Block(c echo.Context) error {
	return h.transition(c, domain.KindBlock, c.Param("id"))
}

func (h *UserHandler) transition(c echo.Context, kind domain.TransitionKind, targetID string) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if targetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing user id")
	}

	res, err := h.access.ApplyTransition(c.Request().Context(), ports.TransitionInput{
		Kind:     kind,
		TargetID: targetID,
		Actor:    actor,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTransitionResponse(kind, res))
}
