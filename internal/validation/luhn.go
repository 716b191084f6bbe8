// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// IsValidRedemptionCode проверяет корректность кода начисления баллов
// по алгоритму Луна. Код состоит только из цифр.
func IsValidRedemptionCode(code string) bool {
	if code == "" {
		return false
	}

	sum := 0
	double := false

	for i := len(code) - 1; i >= 0; i-- {
		ch := rune(code[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}
