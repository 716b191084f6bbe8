// Package currency форматирует денежные суммы в тайских батах.
package currency

import (
	xcurrency "golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Thai)

// Symbol возвращает локализованный символ бата.
func Symbol() string {
	return printer.Sprintf("%v", xcurrency.Symbol(xcurrency.THB))
}

// Amount возвращает сумму в батах как локализованное число с двумя
// знаками после разделителя. Вход — сатанги.
func Amount(satang int64) string {
	baht := float64(satang) / 100
	return printer.Sprintf("%v", number.Decimal(baht,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}

// Format возвращает сумму с символом валюты, например "฿1,234.56".
func Format(satang int64) string {
	return Symbol() + Amount(satang)
}

// Parts возвращает символ валюты и число раздельно, для интерфейсов,
// которым нужно их независимое размещение.
func Parts(satang int64) (symbol, amount string) {
	return Symbol(), Amount(satang)
}
