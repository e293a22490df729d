package readdash

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/readdash/dashboard"
	"github.com/eringen/readdash/views"
)

func (a *App) handleDashboard(c echo.Context) error {
	return Render(c, views.DashboardPage(a.page(c)))
}

// handleState serves the state panel alone for the loading poller.
func (a *App) handleState(c echo.Context) error {
	return Render(c, views.StatePanel(a.stateView(c)))
}

func (a *App) handleSettings(c echo.Context) error {
	if !a.Limiter.Allow(c.RealIP()) {
		return a.rejectAction(c)
	}
	url := strings.TrimSpace(c.FormValue("api_url"))
	if _, err := a.Controller.SubmitURL(c.Request().Context(), url); err != nil {
		a.Logger.Error("submit api url", zap.Error(err))
		_ = addFlash(c, flashError, "Could not save the API URL")
		return c.Redirect(http.StatusSeeOther, "/")
	}
	_ = addFlash(c, flashInfo, "API URL saved")
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleRefresh(c echo.Context) error {
	if !a.Limiter.Allow(c.RealIP()) {
		return a.rejectAction(c)
	}
	if _, err := a.Controller.Refresh(); err != nil {
		if !errors.Is(err, dashboard.ErrUnconfigured) {
			return err
		}
		_ = addFlash(c, flashError, "Set an API URL first")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) rejectAction(c echo.Context) error {
	_ = addFlash(c, flashError, "Too many requests, try again in a minute")
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleAPIState(c echo.Context) error {
	return c.JSON(http.StatusOK, a.stateJSON())
}

func (a *App) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"state":  a.Controller.State().Kind.String(),
	})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		a.Echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.ErrorPage("Not found", "There is nothing at this address."))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error("server error", zap.Error(err), zap.String("uri", c.Request().RequestURI))
		_ = RenderStatus(c, code, views.ErrorPage("Something went wrong", "The dashboard hit an internal error."))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
