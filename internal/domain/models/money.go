package models

import "github.com/shopspring/decimal"

// MoneyPlaces: количество знаков после запятой для всех денежных сумм
const MoneyPlaces = 2

// RoundMoney округляет сумму до копеек (половина округляется от нуля)
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatMoney возвращает сумму строкой с двумя знаками, например "40.00"
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
