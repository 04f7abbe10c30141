package leads

import (
	"context"
	"errors"
	"io"
)

// Template names rendered by the controller.
const (
	TemplateLogin      = "login.html"
	TemplateDashboard  = "dashboard.html"
	TemplateLeads      = "leads.html"
	TemplateLeadDetail = "lead_detail.html"
)

// ViewService is the read side of Service used to render pages.
type ViewService interface {
	Identity() (Identity, bool)
	Leads(ctx context.Context, query TableQuery) (TablePage, error)
	LeadDetail(ctx context.Context, id, quotationID int) (LeadDetail, error)
	DashboardStats(ctx context.Context) (DashboardStats, error)
}

// NavItem is an entry of the top navigation bar.
type NavItem struct {
	Label  string
	Path   string
	Active bool
}

// ControllerOptions wires a Controller.
type ControllerOptions struct {
	Service  ViewService
	Renderer Renderer
	// Notices returns recent notifications shown as flash messages.
	Notices func() []Notification
	Title   string
	// Menu replaces the built-in Dashboard and Leads entries.
	Menu []NavItem
}

// Controller renders the HTML pages of the dashboard.
type Controller struct {
	service  ViewService
	renderer Renderer
	notices  func() []Notification
	title    string
	menu     []NavItem
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	title := opts.Title
	if title == "" {
		title = "Leads Admin"
	}
	return &Controller{
		service:  opts.Service,
		renderer: opts.Renderer,
		notices:  opts.Notices,
		title:    title,
		menu:     append([]NavItem(nil), opts.Menu...),
	}
}

// LoginView carries the state of the login form.
type LoginView struct {
	Email string
	Error string
}

// RenderLogin renders the login form.
func (c *Controller) RenderLogin(_ context.Context, view LoginView, out io.Writer) error {
	return c.render(TemplateLogin, "/login", map[string]any{
		"email": view.Email,
		"error": view.Error,
	}, out)
}

// RenderDashboard renders the metrics dashboard.
func (c *Controller) RenderDashboard(ctx context.Context, out io.Writer) error {
	if c.service == nil {
		return errors.New("leads: controller requires a service")
	}
	stats, err := c.service.DashboardStats(ctx)
	if err != nil {
		return err
	}
	return c.render(TemplateDashboard, "/dashboard", map[string]any{
		"stats":  stats,
		"charts": stats.Charts,
	}, out)
}

// RenderLeads renders one page of the lead table.
func (c *Controller) RenderLeads(ctx context.Context, query TableQuery, out io.Writer) error {
	if c.service == nil {
		return errors.New("leads: controller requires a service")
	}
	page, err := c.service.Leads(ctx, query)
	if err != nil {
		return err
	}
	return c.render(TemplateLeads, "/users", map[string]any{
		"page":     page,
		"next":     nextSorts(page.Sort),
		"previous": page.Page - 1,
		"following": func() int {
			if page.Page < page.Pages {
				return page.Page + 1
			}
			return 0
		}(),
	}, out)
}

// RenderLeadDetail renders a lead with its quotations. An unknown id renders the
// not-found state instead of failing.
func (c *Controller) RenderLeadDetail(ctx context.Context, id, quotationID int, out io.Writer) error {
	if c.service == nil {
		return errors.New("leads: controller requires a service")
	}
	detail, err := c.service.LeadDetail(ctx, id, quotationID)
	if errors.Is(err, ErrLeadNotFound) {
		return c.render(TemplateLeadDetail, "/users", map[string]any{
			"not_found": true,
			"lead_id":   id,
		}, out)
	}
	if err != nil {
		return err
	}
	return c.render(TemplateLeadDetail, "/users", map[string]any{
		"not_found": false,
		"detail":    detail,
		"lead":      detail.Lead,
		"selected":  detail.Selected,
	}, out)
}

func (c *Controller) render(name, active string, data map[string]any, out io.Writer) error {
	if c.renderer == nil {
		return errors.New("leads: controller requires a renderer")
	}
	data["title"] = c.title
	data["nav"] = c.navigation(active)
	if c.service != nil {
		if identity, ok := c.service.Identity(); ok {
			data["identity"] = identity
		}
	}
	if c.notices != nil {
		data["notices"] = c.notices()
	}
	_, err := c.renderer.Render(name, data, out)
	return err
}

func (c *Controller) navigation(active string) []NavItem {
	items := c.menu
	if len(items) == 0 {
		items = []NavItem{
			{Label: "Dashboard", Path: "/dashboard"},
			{Label: "Leads", Path: "/users"},
		}
	}
	nav := make([]NavItem, len(items))
	for i, item := range items {
		item.Active = item.Path == active
		nav[i] = item
	}
	return nav
}

// nextSorts maps each column to the direction a header click would request.
func nextSorts(current SortState) map[string]string {
	next := make(map[string]string, 5)
	for _, key := range []string{SortByID, SortByName, SortByEmail, SortByDepartment, SortByStatus} {
		next[key] = ToggleSort(current, key).Direction
	}
	return next
}
