package store

import (
	"slices"

	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/pricing"
)

// SetUser replaces the displayed user profile.
func (s *Store) SetUser(user *models.Profile) {
	_ = s.commit("set_user", func(st *AppState) error {
		st.User = cloneProfile(user)
		return nil
	})
}

// SetClients replaces the cached clients.
func (s *Store) SetClients(clients []models.Client) {
	_ = s.commit("set_clients", setClients(clients))
}

// SetMaterials replaces the cached materials.
func (s *Store) SetMaterials(materials []models.Material) {
	_ = s.commit("set_materials", setMaterials(materials))
}

// SetInks replaces the cached inks.
func (s *Store) SetInks(inks []models.Ink) {
	_ = s.commit("set_inks", setInks(inks))
}

// SetServices replaces the cached service orders.
func (s *Store) SetServices(services []models.ServiceOrder) {
	_ = s.commit("set_services", setServices(services))
}

func setClients(clients []models.Client) func(*AppState) error {
	return func(st *AppState) error {
		st.Clients = slices.Clone(clients)
		return nil
	}
}

func setMaterials(materials []models.Material) func(*AppState) error {
	return func(st *AppState) error {
		st.Materials = slices.Clone(materials)
		return nil
	}
}

func setInks(inks []models.Ink) func(*AppState) error {
	return func(st *AppState) error {
		st.Inks = slices.Clone(inks)
		return nil
	}
}

func setServices(services []models.ServiceOrder) func(*AppState) error {
	return func(st *AppState) error {
		st.Services = cloneServices(services)
		return nil
	}
}

// Cache writes collections loaded for one user. Writes made after the
// session moved to another user are dropped.
type Cache struct {
	store  *Store
	userID string
}

// CacheFor returns the cache writer of userID.
func (s *Store) CacheFor(userID string) Cache {
	return Cache{store: s, userID: userID}
}

func (c Cache) commit(action string, mutate func(*AppState) error) {
	_ = c.store.commit(action, func(st *AppState) error {
		if c.userID == "" || st.Auth.UserID != c.userID {
			return errSessionNotHeld
		}
		return mutate(st)
	})
}

func (c Cache) SetClients(clients []models.Client) {
	c.commit("set_clients", setClients(clients))
}

func (c Cache) SetMaterials(materials []models.Material) {
	c.commit("set_materials", setMaterials(materials))
}

func (c Cache) SetInks(inks []models.Ink) {
	c.commit("set_inks", setInks(inks))
}

func (c Cache) SetServices(services []models.ServiceOrder) {
	c.commit("set_services", setServices(services))
}

// SetSettings replaces the cached settings.
func (c Cache) SetSettings(settings models.Settings) {
	c.commit("set_settings", func(st *AppState) error {
		st.Settings = cloneSettings(settings)
		return nil
	})
}

func (c Cache) PatchSettings(p SettingsPatch) {
	c.commit("patch_settings", func(st *AppState) error {
		p.Apply(&st.Settings)
		return nil
	})
}

// SettingsPatch lists the settings fields to overwrite.
type SettingsPatch struct {
	CompanyName    *string       `json:"company_name"`
	CompanyLogo    *string       `json:"company_logo"`
	DefaultMarkup  *float64      `json:"default_markup"`
	DefaultUnit    *pricing.Unit `json:"default_unit"`
	TaxPercent     *float64      `json:"tax_percent"`
	DashboardCards *[]string     `json:"dashboard_cards"`
}

// Apply merges p into settings.
func (p SettingsPatch) Apply(settings *models.Settings) {
	if p.CompanyName != nil {
		settings.CompanyName = *p.CompanyName
	}
	if p.CompanyLogo != nil {
		settings.CompanyLogo = *p.CompanyLogo
	}
	if p.DefaultMarkup != nil {
		settings.DefaultMarkup = *p.DefaultMarkup
	}
	if p.DefaultUnit != nil {
		settings.DefaultUnit = *p.DefaultUnit
	}
	if p.TaxPercent != nil {
		settings.TaxPercent = *p.TaxPercent
	}
	if p.DashboardCards != nil {
		settings.DashboardCards = slices.Clone(*p.DashboardCards)
	}
}

// PatchSettings shallow-merges p into the settings.
func (s *Store) PatchSettings(p SettingsPatch) {
	_ = s.commit("patch_settings", func(st *AppState) error {
		p.Apply(&st.Settings)
		return nil
	})
}

// SetLocale sets the locale and derives the matching currency.
func (s *Store) SetLocale(locale string) {
	locale = NormalizeLocale(locale)
	_ = s.commit("set_locale", func(st *AppState) error {
		st.Locale = locale
		st.Currency = CurrencyForLocale(locale)
		return nil
	})
}

// SetCurrency overrides the currency without touching the locale.
func (s *Store) SetCurrency(currency string) {
	_ = s.commit("set_currency", func(st *AppState) error {
		st.Currency = currency
		return nil
	})
}

// SetTheme stores the theme and runs the theme applier.
func (s *Store) SetTheme(theme Theme) {
	_ = s.commit("set_theme", func(st *AppState) error {
		st.Theme = theme
		return nil
	})
	s.applyTheme(theme == ThemeDark)
}

// SetSidebarOpen stores the sidebar visibility.
func (s *Store) SetSidebarOpen(open bool) {
	_ = s.commit("set_sidebar_open", func(st *AppState) error {
		st.SidebarOpen = open
		return nil
	})
}

// SetCurrentPage stores the active page.
func (s *Store) SetCurrentPage(page string) {
	_ = s.commit("set_current_page", func(st *AppState) error {
		st.CurrentPage = page
		return nil
	})
}

// ApplyDetectedLocale switches from the default Portuguese locale to a
// detected non-Portuguese one, then applies the stored theme. A locale
// already changed away from pt-BR is kept.
func (s *Store) ApplyDetectedLocale(detected string) {
	locale := NormalizeLocale(detected)
	current := s.GetState()
	if current.Locale == LocalePortuguese && !IsPortuguese(locale) {
		_ = s.commit("detect_locale", func(st *AppState) error {
			st.Locale = locale
			st.Currency = CurrencyForLocale(locale)
			return nil
		})
	}
	s.applyTheme(current.Theme == ThemeDark)
}
