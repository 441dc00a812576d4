package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Swapnanilmanna1701/tracker/domain"
)

func login(sessions SessionStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, http.StatusBadRequest, "decode", "invalid body")
		}
		s, err := domain.NewSession(req.Username, now())
		if err != nil {
			return fail(c, http.StatusBadRequest, "validate", err.Error())
		}
		if err := sessions.SaveSession(c.Request().Context(), s); err != nil {
			logger.WithError(err).Error("save session failed")
			return fail(c, http.StatusInternalServerError, "storage", "failed to save session")
		}
		logger.WithField("username", s.Username).Info("user logged in")
		return c.JSON(http.StatusCreated, s)
	}
}

func getSession(sessions SessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.LoadSession(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return fail(c, http.StatusInternalServerError, "storage", "failed to load session")
		}
		if s == nil {
			return fail(c, http.StatusNotFound, "no_session", "not logged in")
		}
		return c.JSON(http.StatusOK, s)
	}
}

func logout(sessions SessionStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := sessions.RemoveSession(c.Request().Context()); err != nil {
			logger.WithError(err).Error("remove session failed")
			return fail(c, http.StatusInternalServerError, "storage", "failed to remove session")
		}
		logger.Info("user logged out")
		return c.NoContent(http.StatusNoContent)
	}
}

// requireSession rejects requests until a user has logged in.
func requireSession(sessions SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := sessions.LoadSession(c.Request().Context())
			if err != nil {
				c.Logger().Error(err)
				return fail(c, http.StatusInternalServerError, "storage", "failed to load session")
			}
			if s == nil {
				return fail(c, http.StatusUnauthorized, "auth", "not logged in")
			}
			metricsFrom(c).SetUsername(s.Username)
			return next(c)
		}
	}
}
