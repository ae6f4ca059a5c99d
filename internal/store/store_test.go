package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/pricing"
)

func fastHasher() Option {
	return WithPasswordHasher(
		func(pw string) (string, error) { return "plain:" + pw, nil },
		func(pw, encoded string) bool { return encoded == "plain:"+pw },
	)
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return New(NewMemoryPersistence(), append([]Option{fastHasher()}, opts...)...)
}

func TestNewStartsFromDefaults(t *testing.T) {
	s := newTestStore(t)
	state := s.GetState()

	if state.Locale != LocalePortuguese || state.Currency != CurrencyBRL {
		t.Fatalf("locale/currency = %s/%s, want pt-BR/BRL", state.Locale, state.Currency)
	}
	if state.Theme != ThemeDark || !state.SidebarOpen || state.CurrentPage != "dashboard" {
		t.Fatalf("unexpected ui defaults: %+v", state)
	}
	if state.Settings.DefaultMarkup != 30 || state.Settings.DefaultUnit != pricing.UnitSquareMeter {
		t.Fatalf("unexpected settings: %+v", state.Settings)
	}
}

func TestSetLocaleDerivesCurrency(t *testing.T) {
	s := newTestStore(t)

	s.SetLocale("en-US")
	state := s.GetState()
	if state.Locale != "en-US" || state.Currency != "USD" {
		t.Fatalf("after SetLocale: %s/%s, want en-US/USD", state.Locale, state.Currency)
	}

	s.SetCurrency("EUR")
	state = s.GetState()
	if state.Locale != "en-US" || state.Currency != "EUR" {
		t.Fatalf("after SetCurrency: %s/%s, want en-US/EUR", state.Locale, state.Currency)
	}

	s.SetLocale("pt-BR")
	if got := s.GetState().Currency; got != "BRL" {
		t.Fatalf("currency = %s, want BRL", got)
	}
}

func TestSubscribeNotifiesOncePerChange(t *testing.T) {
	s := newTestStore(t)

	calls := 0
	unsubscribe := s.Subscribe(func(AppState) { calls++ })

	page := "clients"
	s.SetState(Patch{CurrentPage: &page})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	s.SetSidebarOpen(false)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	unsubscribe()
	unsubscribe()
	s.SetSidebarOpen(true)
	if calls != 2 {
		t.Fatalf("calls after unsubscribe = %d, want 2", calls)
	}
}

func TestSelectDeliversToEverySubscription(t *testing.T) {
	s := newTestStore(t)

	selectPage := func(st AppState) string { return st.CurrentPage }
	var first, second []string
	Select(s, selectPage, func(p string) { first = append(first, p) })
	Select(s, selectPage, func(p string) { second = append(second, p) })

	s.SetCurrentPage("services")
	s.SetTheme(ThemeLight)

	want := []string{"services", "services"}
	if strings.Join(first, ",") != strings.Join(want, ",") {
		t.Fatalf("first = %v, want %v", first, want)
	}
	if strings.Join(second, ",") != strings.Join(want, ",") {
		t.Fatalf("second = %v, want %v", second, want)
	}
}

func TestListenersRunInSubscriptionOrder(t *testing.T) {
	s := newTestStore(t)

	var order []int
	for i := 1; i <= 5; i++ {
		n := i
		s.Subscribe(func(AppState) { order = append(order, n) })
	}
	s.SetCurrency("USD")

	for i, n := range order {
		if n != i+1 {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestListenerMayWriteToStore(t *testing.T) {
	s := newTestStore(t)

	s.Subscribe(func(st AppState) {
		if st.Currency == "EUR" {
			s.SetCurrency("USD")
		}
	})
	s.SetCurrency("EUR")

	if got := s.GetState().Currency; got != "USD" {
		t.Fatalf("currency = %s, want USD", got)
	}
}

func TestGetStateReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	s.SetClients([]models.Client{{ID: "c1", Name: "Ana"}})

	state := s.GetState()
	state.Clients[0].Name = "mudado"
	state.Settings.DashboardCards[0] = "mudado"
	state.Locale = "xx"

	fresh := s.GetState()
	if fresh.Clients[0].Name != "Ana" {
		t.Fatalf("client name leaked: %q", fresh.Clients[0].Name)
	}
	if fresh.Settings.DashboardCards[0] != "revenue" {
		t.Fatalf("dashboard cards leaked: %v", fresh.Settings.DashboardCards)
	}
	if fresh.Locale != LocalePortuguese {
		t.Fatalf("locale leaked: %q", fresh.Locale)
	}
}

func TestUpdateAppliesUpdater(t *testing.T) {
	s := newTestStore(t)
	s.SetMaterials([]models.Material{{ID: "m1", CostPerUnit: 10}})

	s.Update(func(st *AppState) {
		st.Materials = append(st.Materials, models.Material{ID: "m2", CostPerUnit: 20})
	})

	if got := len(s.GetState().Materials); got != 2 {
		t.Fatalf("materials = %d, want 2", got)
	}
}

func TestPatchSettingsMergesShallowly(t *testing.T) {
	s := newTestStore(t)

	name := "Gráfica Azul"
	markup := 55.0
	s.PatchSettings(SettingsPatch{CompanyName: &name, DefaultMarkup: &markup})

	settings := s.GetState().Settings
	if settings.CompanyName != name || settings.DefaultMarkup != markup {
		t.Fatalf("unexpected settings: %+v", settings)
	}
	if settings.DefaultUnit != pricing.UnitSquareMeter || len(settings.DashboardCards) != 6 {
		t.Fatalf("untouched settings changed: %+v", settings)
	}
}

func TestSetThemeRunsApplier(t *testing.T) {
	var applied []bool
	s := newTestStore(t, WithThemeApplier(func(dark bool) { applied = append(applied, dark) }))

	s.SetTheme(ThemeLight)
	s.SetTheme(ThemeDark)

	if len(applied) != 2 || applied[0] || !applied[1] {
		t.Fatalf("applied = %v, want [false true]", applied)
	}
	if s.GetState().Theme != ThemeDark {
		t.Fatalf("theme = %s", s.GetState().Theme)
	}
}

func TestApplyDetectedLocale(t *testing.T) {
	s := newTestStore(t)
	s.ApplyDetectedLocale("en-GB")
	state := s.GetState()
	if state.Locale != "en-GB" || state.Currency != CurrencyUSD {
		t.Fatalf("after detection: %s/%s", state.Locale, state.Currency)
	}

	s.SetLocale("pt-BR")
	s.SetCurrency("EUR")
	calls := 0
	s.Subscribe(func(AppState) { calls++ })
	s.ApplyDetectedLocale("pt-PT")
	if calls != 0 || s.GetState().Currency != "EUR" {
		t.Fatalf("detection of a Portuguese tag changed state")
	}
}

func TestRegisterUserRejectsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)

	first, err := s.RegisterUser(Registration{Name: " Ana ", Email: " Ana@Example.com ", Phone: "(11) 98765-4321", Password: "x"})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if first.Email != "ana@example.com" || first.Phone != "11987654321" || first.Name != "Ana" {
		t.Fatalf("unexpected normalization: %+v", first)
	}

	before := s.GetState().Users

	_, err = s.RegisterUser(Registration{Name: "Outra", Email: "ana@example.com", Password: "y"})
	if !errors.Is(err, ErrDuplicateEmail) || !errors.Is(err, ErrAuthentication) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}

	after := s.GetState().Users
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Fatalf("users changed after duplicate: %+v", after)
	}
}

func TestRegisterUserRejectsDuplicatePhone(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.RegisterUser(Registration{Email: "a@x.com", Phone: "11 99999-0000", Password: "x"}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	_, err := s.RegisterUser(Registration{Email: "b@x.com", Phone: "11999990000", Password: "x"})
	if !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("err = %v, want ErrDuplicatePhone", err)
	}

	// Users without a phone never collide on it.
	if _, err := s.RegisterUser(Registration{Email: "c@x.com", Password: "x"}); err != nil {
		t.Fatalf("RegisterUser without phone: %v", err)
	}
	if _, err := s.RegisterUser(Registration{Email: "d@x.com", Password: "x"}); err != nil {
		t.Fatalf("second RegisterUser without phone: %v", err)
	}
}

func TestEnsureUserDoesNotStartSession(t *testing.T) {
	s := newTestStore(t)

	admin, created, err := s.EnsureUser(Registration{Name: "Admin", Email: "Admin@Shop.com", Password: "secret"})
	if err != nil || !created {
		t.Fatalf("EnsureUser: created=%v err=%v", created, err)
	}
	if _, ok := s.CurrentUser(); ok {
		t.Fatalf("EnsureUser must not log the user in")
	}

	again, created, err := s.EnsureUser(Registration{Email: "admin@shop.com", Password: "other"})
	if err != nil || created || again.ID != admin.ID {
		t.Fatalf("second EnsureUser: %+v created=%v err=%v", again, created, err)
	}
	if len(s.GetState().Users) != 1 {
		t.Fatalf("users = %d, want 1", len(s.GetState().Users))
	}
}

func TestSwitchUserDropsCollectionsOfPreviousUser(t *testing.T) {
	s := newTestStore(t)

	s.SetClients([]models.Client{{ID: "local", Name: "Antes do login"}})
	ana, err := s.RegisterUser(Registration{Email: "ana@x.com", Password: "segredo"})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if got := len(s.GetState().Clients); got != 1 {
		t.Fatalf("clients cached before login = %d, want 1", got)
	}

	bia, _, err := s.EnsureUser(Registration{Email: "bia@x.com", Password: "segredo"})
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if _, err := s.SwitchUser(bia.ID); err != nil {
		t.Fatalf("SwitchUser: %v", err)
	}
	st := s.GetState()
	if st.Auth.UserID != bia.ID || st.User == nil || st.User.Email != "bia@x.com" || len(st.Clients) != 0 {
		t.Fatalf("state after switch = %+v", st)
	}
	if _, err := s.SwitchUser("missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("SwitchUser(missing) = %v", err)
	}

	if err := s.LogoutUser(ana.ID); err != nil || !s.HoldsSession(bia.ID) {
		t.Fatalf("another user's logout cleared the session: %v", err)
	}
	if got, _ := s.UserByID(ana.ID); got.SessionVersion != 1 {
		t.Fatalf("session version = %d, want 1", got.SessionVersion)
	}
	if err := s.LogoutUser(bia.ID); err != nil || s.HoldsSession(bia.ID) {
		t.Fatalf("LogoutUser did not clear the session: %v", err)
	}
	if err := s.LogoutUser("missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("LogoutUser(missing) = %v", err)
	}
}

func TestLoginResolvesIdentifier(t *testing.T) {
	s := newTestStore(t)
	user, err := s.RegisterUser(Registration{Name: "Ana", Email: "ana@example.com", Phone: "+55 11 98888-7777", Password: "segredo"})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	s.Logout()
	if _, err := s.RequireUserID(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("RequireUserID after logout = %v", err)
	}

	tests := []struct {
		name    string
		ident   string
		pass    string
		wantErr error
	}{
		{name: "email", ident: "  ANA@example.com", pass: "segredo"},
		{name: "phone", ident: "55 (11) 98888-7777", pass: "segredo"},
		{name: "wrong password", ident: "ana@example.com", pass: "outra", wantErr: ErrInvalidPassword},
		{name: "unknown email", ident: "bia@example.com", pass: "segredo", wantErr: ErrUserNotFound},
		{name: "unknown phone", ident: "1234", pass: "segredo", wantErr: ErrUserNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s.Logout()
			got, err := s.Login(tc.ident, tc.pass)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				if _, ok := s.CurrentUser(); ok {
					t.Fatalf("session set after failed login")
				}
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if got.ID != user.ID {
				t.Fatalf("logged in as %s, want %s", got.ID, user.ID)
			}
			id, err := s.RequireUserID()
			if err != nil || id != user.ID {
				t.Fatalf("RequireUserID = %q, %v", id, err)
			}
		})
	}
}

func TestRegisterUserWithRealHash(t *testing.T) {
	s := New(NewMemoryPersistence())
	user, err := s.RegisterUser(Registration{Email: "real@example.com", Password: "senha-longa"})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if !strings.HasPrefix(user.PassHash, "$argon2id$") {
		t.Fatalf("PassHash = %q", user.PassHash)
	}
	s.Logout()
	if _, err := s.Login("real@example.com", "senha-longa"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	p := NewMemoryPersistence()
	s := New(p, fastHasher())

	if _, err := s.RegisterUser(Registration{Name: "Ana", Email: "ana@example.com", Phone: "11999", Password: "x"}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	markup := 25.0
	s.SetServices([]models.ServiceOrder{{
		ID:     "s1",
		Name:   "Banner",
		Status: models.StatusQuote,
		Markup: &markup,
		Items: []models.ServiceItem{
			models.NewServiceItem(models.Material{ID: "m1", Unit: pricing.UnitMeter, CostPerUnit: 10}, 2, 3, 0, 0),
		},
	}})
	s.SetLocale("en-US")
	s.SetCurrency("EUR")
	s.SetTheme(ThemeLight)

	want, err := Encode(s.GetState())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	reloaded := New(p, fastHasher())
	got, err := Encode(reloaded.GetState())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch:\n got %s\nwant %s", got, want)
	}
	if _, ok := reloaded.CurrentUser(); !ok {
		t.Fatalf("session lost on reload")
	}
}

func TestHydrationMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"theme":"light","currentPage":"inks"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New(FilePersistence{Path: path}, fastHasher())
	state := s.GetState()
	if state.Theme != ThemeLight || state.CurrentPage != "inks" {
		t.Fatalf("persisted fields not applied: %+v", state)
	}
	if state.Locale != LocalePortuguese || !state.SidebarOpen || state.Settings.CompanyName == "" {
		t.Fatalf("defaults lost: %+v", state)
	}

	s.SetSidebarOpen(false)
	reloaded := New(FilePersistence{Path: path}, fastHasher())
	if reloaded.GetState().SidebarOpen {
		t.Fatalf("file snapshot not rewritten")
	}
}

type failingPersistence struct{}

func (failingPersistence) Load() (AppState, bool, error) { return AppState{}, false, errors.New("disk gone") }
func (failingPersistence) Save(AppState) error           { return errors.New("disk full") }

type countingObserver struct {
	mutations map[string]int
	failures  map[string]int
}

func (c *countingObserver) Mutation(action string)       { c.mutations[action]++ }
func (c *countingObserver) PersistenceFailure(op string) { c.failures[op]++ }

func TestPersistenceFailuresAreLoggedAndSwallowed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	obs := &countingObserver{mutations: map[string]int{}, failures: map[string]int{}}

	s := New(failingPersistence{}, WithLogger(zap.New(core)), WithObserver(obs), fastHasher())
	s.SetCurrentPage("materials")

	if got := s.GetState().CurrentPage; got != "materials" {
		t.Fatalf("in-memory state not updated: %q", got)
	}
	if logs.FilterMessage("failed to load state snapshot").Len() != 1 {
		t.Fatalf("load failure not logged")
	}
	if logs.FilterMessage("failed to save state snapshot").Len() != 1 {
		t.Fatalf("save failure not logged")
	}
	if obs.failures["load"] != 1 || obs.failures["save"] != 1 {
		t.Fatalf("failures = %v", obs.failures)
	}
	if obs.mutations["set_current_page"] != 1 {
		t.Fatalf("mutations = %v", obs.mutations)
	}
}

func TestNormalizeLocale(t *testing.T) {
	tests := map[string]string{
		"pt-BR": LocalePortuguese,
		"pt":    LocalePortuguese,
		"pt-PT": "pt-PT",
		"en-US": LocaleEnglish,
		"en":    LocaleEnglish,
		"fr-FR": "fr-FR",
		"":      LocaleEnglish,
		"???":   LocaleEnglish,
	}
	for in, want := range tests {
		if got := NormalizeLocale(in); got != want {
			t.Fatalf("NormalizeLocale(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetLocaleKeepsTagAndDerivesCurrencyFromLanguage(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		locale       string
		wantLocale   string
		wantCurrency string
	}{
		{"fr-FR", "fr-FR", CurrencyUSD},
		{"pt-PT", "pt-PT", CurrencyBRL},
		{"pt", LocalePortuguese, CurrencyBRL},
		{"de", "de", CurrencyUSD},
	}
	for _, tc := range tests {
		s.SetLocale(tc.locale)
		st := s.GetState()
		if st.Locale != tc.wantLocale || st.Currency != tc.wantCurrency {
			t.Fatalf("SetLocale(%q) = %s/%s, want %s/%s", tc.locale, st.Locale, st.Currency, tc.wantLocale, tc.wantCurrency)
		}
	}
}

func TestCacheWritesOnlyForSessionHolder(t *testing.T) {
	s := newTestStore(t)
	ana, err := s.RegisterUser(Registration{Email: "ana@x.com", Password: "segredo"})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	bia, _, err := s.EnsureUser(Registration{Email: "bia@x.com", Password: "segredo"})
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	s.CacheFor(ana.ID).SetClients([]models.Client{{ID: "c1", Name: "Da Ana"}})
	s.CacheFor(bia.ID).SetClients([]models.Client{{ID: "c2", Name: "Da Bia"}})
	s.CacheFor(bia.ID).PatchSettings(SettingsPatch{CompanyName: ptrTo("Gráfica Bia")})

	st := s.GetState()
	if len(st.Clients) != 1 || st.Clients[0].ID != "c1" {
		t.Fatalf("clients = %+v, want only Ana's", st.Clients)
	}
	if st.Settings.CompanyName == "Gráfica Bia" {
		t.Fatalf("settings patched for a user without the session")
	}
}

func ptrTo[T any](v T) *T { return &v }
