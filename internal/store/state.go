package store

import (
	"slices"

	"github.com/Simplici0/printdesk/internal/models"
)

// Theme is the UI colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Session points at the logged-in entry of AppState.Users.
type Session struct {
	UserID string `json:"userId,omitempty"`
}

// AppState is the whole application state. It is persisted as one JSON
// document on every change.
type AppState struct {
	User     *models.Profile `json:"user"`
	Settings models.Settings `json:"settings"`
	Locale   string          `json:"locale"`
	Currency string          `json:"currency"`
	Theme    Theme           `json:"theme"`

	Users []models.AuthUser `json:"users"`
	Auth  Session           `json:"auth"`

	Clients   []models.Client       `json:"clients"`
	Materials []models.Material     `json:"materials"`
	Inks      []models.Ink          `json:"inks"`
	Services  []models.ServiceOrder `json:"services"`

	SidebarOpen bool   `json:"sidebarOpen"`
	CurrentPage string `json:"currentPage"`
}

// DefaultState is the state of a fresh installation.
func DefaultState() AppState {
	return AppState{
		Settings:    models.DefaultSettings(),
		Locale:      LocalePortuguese,
		Currency:    CurrencyBRL,
		Theme:       ThemeDark,
		Users:       []models.AuthUser{},
		Clients:     []models.Client{},
		Materials:   []models.Material{},
		Inks:        []models.Ink{},
		Services:    []models.ServiceOrder{},
		SidebarOpen: true,
		CurrentPage: "dashboard",
	}
}

// Patch is a partial AppState. Nil fields are left untouched.
type Patch struct {
	User        **models.Profile
	Settings    *models.Settings
	Locale      *string
	Currency    *string
	Theme       *Theme
	Users       *[]models.AuthUser
	Auth        *Session
	Clients     *[]models.Client
	Materials   *[]models.Material
	Inks        *[]models.Ink
	Services    *[]models.ServiceOrder
	SidebarOpen *bool
	CurrentPage *string
}

func (p Patch) apply(s *AppState) {
	if p.User != nil {
		s.User = cloneProfile(*p.User)
	}
	if p.Settings != nil {
		s.Settings = cloneSettings(*p.Settings)
	}
	if p.Locale != nil {
		s.Locale = *p.Locale
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.Users != nil {
		s.Users = slices.Clone(*p.Users)
	}
	if p.Auth != nil {
		s.Auth = *p.Auth
	}
	if p.Clients != nil {
		s.Clients = slices.Clone(*p.Clients)
	}
	if p.Materials != nil {
		s.Materials = slices.Clone(*p.Materials)
	}
	if p.Inks != nil {
		s.Inks = slices.Clone(*p.Inks)
	}
	if p.Services != nil {
		s.Services = cloneServices(*p.Services)
	}
	if p.SidebarOpen != nil {
		s.SidebarOpen = *p.SidebarOpen
	}
	if p.CurrentPage != nil {
		s.CurrentPage = *p.CurrentPage
	}
}

// clone copies every slice and pointer so the result shares no memory with s.
func (s AppState) clone() AppState {
	out := s
	out.User = cloneProfile(s.User)
	out.Settings = cloneSettings(s.Settings)
	out.Users = slices.Clone(s.Users)
	out.Clients = slices.Clone(s.Clients)
	out.Materials = slices.Clone(s.Materials)
	out.Inks = slices.Clone(s.Inks)
	out.Services = cloneServices(s.Services)
	return out
}

func cloneProfile(p *models.Profile) *models.Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneSettings(s models.Settings) models.Settings {
	s.DashboardCards = slices.Clone(s.DashboardCards)
	return s
}

func cloneServices(in []models.ServiceOrder) []models.ServiceOrder {
	if in == nil {
		return nil
	}
	out := make([]models.ServiceOrder, len(in))
	for i, svc := range in {
		out[i] = cloneService(svc)
	}
	return out
}

func cloneService(svc models.ServiceOrder) models.ServiceOrder {
	if svc.Client != nil {
		c := *svc.Client
		svc.Client = &c
	}
	if svc.DueDate != nil {
		d := *svc.DueDate
		svc.DueDate = &d
	}
	if svc.Markup != nil {
		m := *svc.Markup
		svc.Markup = &m
	}
	if svc.ManualPrice != nil {
		p := *svc.ManualPrice
		svc.ManualPrice = &p
	}
	svc.Items = slices.Clone(svc.Items)
	svc.Inks = slices.Clone(svc.Inks)
	svc.Extras = slices.Clone(svc.Extras)
	svc.Discounts = slices.Clone(svc.Discounts)
	svc.Payments = slices.Clone(svc.Payments)
	svc.Comments = slices.Clone(svc.Comments)
	return svc
}
