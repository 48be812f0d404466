package handlers

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var displayMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Portuguese,
	language.Indonesian,
	language.Japanese,
})

// displayAmount renders minor units as a localized currency string. The
// result is presentation only; settlement and matching read minor units.
func (a *App) displayAmount(locale string, minor int64) string {
	tag, _ := language.MatchStrings(displayMatcher, locale)
	unit, err := currency.ParseISO(a.Config.Currency)
	if err != nil {
		unit = currency.USD
	}
	p := message.NewPrinter(tag)
	return p.Sprintf("%v", currency.Symbol(unit.Amount(float64(minor)/100)))
}
