package billing

import (
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Валюты без дробной части: сумма передается процессору как есть.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// IsZeroDecimal true для валют без минимальных единиц
func IsZeroDecimal(currency string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToLower(currency)]
	return ok
}

// ToMinorUnits переводит сумму в основных единицах в минимальные с округлением до ближайшего.
func ToMinorUnits(amount float64, currency string) int64 {
	if IsZeroDecimal(currency) {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}

// IsCurrencyCode true для трехбуквенного кода ISO 4217 в любом регистре
func IsCurrencyCode(currency string) bool {
	return validate.Var(strings.ToUpper(currency), "required,iso4217") == nil
}
