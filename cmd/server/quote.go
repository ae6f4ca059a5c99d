package main

import (
	"fmt"
	"strings"

	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/money"
	"github.com/Simplici0/printdesk/internal/pricing"
	"github.com/Simplici0/printdesk/internal/store"
)

// breakdown splits the total cost of a draft by line kind.
type breakdown struct {
	Materials float64 `json:"materials"`
	Inks      float64 `json:"inks"`
	Labor     float64 `json:"labor"`
	Extras    float64 `json:"extras"`
	Discounts float64 `json:"discounts"`
}

func breakdownOf(d pricing.Draft) breakdown {
	var b breakdown
	for _, item := range d.Items {
		b.Materials += pricing.MaterialCost(item)
	}
	for _, ink := range d.Inks {
		b.Inks += pricing.InkCost(ink)
	}
	for _, l := range d.Labor {
		b.Labor += pricing.LaborCost(l)
	}
	for _, a := range d.Extras {
		b.Extras += a.Value
	}
	for _, a := range d.Discounts {
		b.Discounts += a.Value
	}
	return b
}

var quoteLabels = map[string]map[string]string{
	store.LocalePortuguese: {
		"quote":     "Orçamento",
		"client":    "Cliente",
		"status":    "Status",
		"due":       "Prazo",
		"materials": "Materiais",
		"inks":      "Tintas",
		"labor":     "Mão de obra",
		"extras":    "Extras",
		"discounts": "Descontos",
		"total":     "Total",
		"paid":      "Pago",
		"balance":   "Saldo",
	},
	store.LocaleEnglish: {
		"quote":     "Quote",
		"client":    "Client",
		"status":    "Status",
		"due":       "Due",
		"materials": "Materials",
		"inks":      "Inks",
		"labor":     "Labor",
		"extras":    "Extras",
		"discounts": "Discounts",
		"total":     "Total",
		"paid":      "Paid",
		"balance":   "Balance",
	},
}

// quoteText renders a service order as a plain-text quote to send to a client.
func quoteText(svc models.ServiceOrder, settings models.Settings, locale, currency string) string {
	labels, ok := quoteLabels[locale]
	if !ok {
		labels = quoteLabels[store.LocaleEnglish]
		if store.IsPortuguese(locale) {
			labels = quoteLabels[store.LocalePortuguese]
		}
	}
	amount := func(v float64) string { return money.Format(v, currency, locale) }
	b := breakdownOf(svc.Draft())

	var sb strings.Builder
	if settings.CompanyName != "" {
		sb.WriteString(settings.CompanyName + "\n")
	}
	fmt.Fprintf(&sb, "%s: %s\n", labels["quote"], svc.Name)
	if svc.Client != nil {
		fmt.Fprintf(&sb, "%s: %s\n", labels["client"], svc.Client.Name)
	}
	fmt.Fprintf(&sb, "%s: %s\n", labels["status"], svc.Status)
	if svc.DueDate != nil {
		layout := "02/01/2006"
		if locale == store.LocaleEnglish {
			layout = "01/02/2006"
		}
		fmt.Fprintf(&sb, "%s: %s\n", labels["due"], svc.DueDate.Format(layout))
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s: %s\n", labels["materials"], amount(b.Materials))
	fmt.Fprintf(&sb, "%s: %s\n", labels["inks"], amount(b.Inks))
	fmt.Fprintf(&sb, "%s: %s\n", labels["labor"], amount(b.Labor))
	if b.Extras != 0 {
		fmt.Fprintf(&sb, "%s: %s\n", labels["extras"], amount(b.Extras))
	}
	if b.Discounts != 0 {
		fmt.Fprintf(&sb, "%s: -%s\n", labels["discounts"], amount(b.Discounts))
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s: %s\n", labels["total"], amount(svc.Totals.Price))
	if len(svc.Payments) > 0 {
		fmt.Fprintf(&sb, "%s: %s\n", labels["paid"], amount(svc.PaidAmount()))
		fmt.Fprintf(&sb, "%s: %s\n", labels["balance"], amount(svc.Balance()))
	}
	return sb.String()
}
