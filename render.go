package readdash

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/readdash/dashboard"
	"github.com/eringen/readdash/views"
)

const pageTitle = "Reading time statistics"

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
// Nothing is written if the component fails to render.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	var buf bytes.Buffer
	if err := cmp.Render(c.Request().Context(), &buf); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}

// stateView snapshots the controller once so the page never mixes two states.
func (a *App) stateView(c echo.Context) views.StateView {
	return views.NewStateView(a.Controller.State(), a.Controller.APIURL(), CsrfToken(c))
}

func (a *App) page(c echo.Context) views.Page {
	return views.Page{
		Title:     pageTitle,
		CSRFToken: CsrfToken(c),
		Flashes:   popFlashes(c),
		State:     a.stateView(c),
	}
}

// stateResponse is the JSON shape of GET /api/state.
type stateResponse struct {
	State  dashboard.ViewState `json:"state"`
	APIURL string              `json:"apiUrl,omitempty"`
	View   *dashboard.View     `json:"view,omitempty"`
}

func (a *App) stateJSON() stateResponse {
	st := a.Controller.State()
	out := stateResponse{State: st, APIURL: a.Controller.APIURL()}
	if snap, ok := st.Snapshot(); ok {
		v := dashboard.Derive(snap)
		out.View = &v
	}
	return out
}
