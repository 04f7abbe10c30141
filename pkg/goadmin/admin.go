package goadmin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	core "github.com/goliatone/go-leads-dashboard/components/leads"
	leadspkg "github.com/goliatone/go-leads-dashboard/pkg/leads"
)

// DefaultMenuCode is the menu seeded when Config.MenuCode is empty.
const DefaultMenuCode = "admin.main"

// MenuBuilder ensures lead dashboard entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures link metadata.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Position int
}

// DefaultMenuItems links the metrics dashboard and the lead table.
func DefaultMenuItems() []MenuItem {
	return []MenuItem{
		{Label: "Dashboard", Route: "/dashboard", Icon: "home", Position: 10},
		{Label: "Leads", Route: "/users", Icon: "users", Position: 20},
	}
}

// Config wires the lead service and its menu entries into an admin shell.
type Config struct {
	EnableLeads bool
	MenuCode    string
	MenuBuilder MenuBuilder
	Service     *leadspkg.Service
	MenuItems   []MenuItem
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg Config
}

// New creates an Admin helper that can seed lead dashboard menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableLeads && cfg.Service == nil {
		return nil, errors.New("goadmin: leads service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = DefaultMenuCode
	}
	if len(cfg.MenuItems) == 0 {
		cfg.MenuItems = DefaultMenuItems()
	}
	return &Admin{cfg: cfg}, nil
}

// Leads exposes the configured service when enabled.
func (a *Admin) Leads() *leadspkg.Service {
	if !a.cfg.EnableLeads {
		return nil
	}
	return a.cfg.Service
}

// Bootstrap seeds menu entries when lead support is enabled.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnableLeads || a.cfg.MenuBuilder == nil {
		return nil
	}
	for _, item := range a.cfg.MenuItems {
		if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, item); err != nil {
			return fmt.Errorf("goadmin: ensure %s: %w", item.Label, err)
		}
	}
	return nil
}

// Menu is an in-process MenuBuilder. Items are unique per route within a menu.
type Menu struct {
	mu    sync.RWMutex
	menus map[string][]MenuItem
}

// NewMenu creates an empty menu registry.
func NewMenu() *Menu {
	return &Menu{menus: map[string][]MenuItem{}}
}

// EnsureMenuItem adds item or replaces the entry with the same route.
func (m *Menu) EnsureMenuItem(_ context.Context, menuCode string, item MenuItem) error {
	if item.Route == "" {
		return errors.New("goadmin: menu item route is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.menus[menuCode]
	for i := range items {
		if items[i].Route == item.Route {
			items[i] = item
			return nil
		}
	}
	items = append(items, item)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	m.menus[menuCode] = items
	return nil
}

// Items returns the entries of a menu ordered by position.
func (m *Menu) Items(menuCode string) []MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MenuItem(nil), m.menus[menuCode]...)
}

// NavItems converts a menu into controller navigation entries.
func (m *Menu) NavItems(menuCode string) []core.NavItem {
	items := m.Items(menuCode)
	nav := make([]core.NavItem, len(items))
	for i, item := range items {
		nav[i] = core.NavItem{Label: item.Label, Path: item.Route}
	}
	return nav
}
