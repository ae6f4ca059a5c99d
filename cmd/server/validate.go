package main

import (
	"math"
	"net/mail"
	"sort"
	"strings"

	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/repository"
	"github.com/Simplici0/printdesk/internal/store"
)

// fieldErrors maps a JSON field to its validation message.
type fieldErrors map[string]string

func (f fieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, f[k])
	}
	return strings.Join(parts, "; ")
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) required(field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, msg)
	}
}

func (f fieldErrors) nonNegative(field string, value float64) {
	switch {
	case math.IsNaN(value) || math.IsInf(value, 0):
		f.add(field, field+" deve ser numérico")
	case value < 0:
		f.add(field, field+" deve ser maior ou igual a 0")
	}
}

func (f fieldErrors) percent(field string, value float64) {
	f.nonNegative(field, value)
	if value > 100 {
		f.add(field, field+" deve estar entre 0 e 100")
	}
}

func (f fieldErrors) positive(field string, value float64) {
	f.nonNegative(field, value)
	if value == 0 {
		f.add(field, field+" deve ser maior que 0")
	}
}

var validStatuses = map[string]bool{
	models.StatusQuote:      true,
	models.StatusApproved:   true,
	models.StatusProduction: true,
	models.StatusDone:       true,
}

func validateRegistration(in store.Registration) error {
	errs := fieldErrors{}
	errs.required("name", in.Name, "Nome é obrigatório")
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil || !strings.Contains(in.Email, "@") {
		errs.add("email", "E-mail inválido")
	}
	if digits := store.NormalizePhone(in.Phone); in.Phone != "" && (len(digits) < 10 || len(digits) > 12) {
		errs.add("phone", "Telefone deve ter entre 10 e 12 dígitos")
	}
	if len(in.Password) < 6 {
		errs.add("password", "Senha deve ter pelo menos 6 caracteres")
	}
	return errs.err()
}

func validateLogin(ident, password string) error {
	errs := fieldErrors{}
	errs.required("ident", ident, "E-mail ou telefone é obrigatório")
	if password == "" {
		errs.add("password", "Senha é obrigatória")
	}
	return errs.err()
}

func validateClient(in repository.ClientInput) error {
	errs := fieldErrors{}
	errs.required("name", in.Name, "Nome é obrigatório")
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			errs.add("email", "E-mail inválido")
		}
	}
	return errs.err()
}

func validateMaterial(in repository.MaterialInput) error {
	errs := fieldErrors{}
	errs.required("name", in.Name, "Nome é obrigatório")
	if !in.Unit.Valid() {
		errs.add("unit", "unit deve ser m ou m2")
	}
	errs.nonNegative("cost_per_unit", in.CostPerUnit)
	return errs.err()
}

func validateInk(in repository.InkInput) error {
	errs := fieldErrors{}
	errs.required("name", in.Name, "Nome é obrigatório")
	errs.nonNegative("cost_per_liter", in.CostPerLiter)
	return errs.err()
}

func validateService(in repository.ServiceInput) error {
	errs := fieldErrors{}
	errs.required("name", in.Name, "Nome é obrigatório")
	if in.Status != "" && !validStatuses[in.Status] {
		errs.add("status", "status inválido")
	}
	errs.nonNegative("labor_hours", in.LaborHours)
	errs.nonNegative("labor_rate", in.LaborRate)
	if in.Markup != nil {
		errs.nonNegative("markup", *in.Markup)
	}
	if in.ManualPrice != nil {
		errs.nonNegative("manual_price", *in.ManualPrice)
	}
	for _, item := range in.Items {
		if !item.Unit.Valid() {
			errs.add("items", "unit deve ser m ou m2")
		}
		for _, v := range []float64{item.Quantity, item.Meters, item.Width, item.Height, item.UnitCostSnapshot} {
			if v < 0 {
				errs.add("items", "valores dos itens devem ser maiores ou iguais a 0")
			}
		}
	}
	for _, ink := range in.Inks {
		if ink.MLUsed < 0 || ink.CostPerLiterSnapshot < 0 {
			errs.add("inks", "valores das tintas devem ser maiores ou iguais a 0")
		}
	}
	for _, a := range in.Extras {
		errs.nonNegative("extras", a.Value)
	}
	for _, a := range in.Discounts {
		errs.nonNegative("discounts", a.Value)
	}
	return errs.err()
}

func validatePayment(in repository.PaymentInput) error {
	errs := fieldErrors{}
	errs.positive("amount", in.Amount)
	return errs.err()
}

func validateSettings(s models.Settings) error {
	errs := fieldErrors{}
	errs.required("company_name", s.CompanyName, "Nome da empresa é obrigatório")
	errs.nonNegative("default_markup", s.DefaultMarkup)
	if !s.DefaultUnit.Valid() {
		errs.add("default_unit", "default_unit deve ser m ou m2")
	}
	errs.percent("tax_percent", s.TaxPercent)
	return errs.err()
}
