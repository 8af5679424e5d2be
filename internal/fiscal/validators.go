package fiscal

import (
	"fmt"
	"strconv"
	"strings"
)

// OnlyDigits strips everything that is not an ASCII digit.
func OnlyDigits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allEqual(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// weightedSum multiplies digits[i] by weights[i] and sums the products.
func weightedSum(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	return sum
}

func mod11Digit(sum int) int {
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// cnpjWeights returns the weight vector for a CNPJ check-digit pass over
// length digits: cycles 2..9 from the rightmost position.
func cnpjWeights(length int) []int {
	weights := make([]int, length)
	w := 2
	for i := length - 1; i >= 0; i-- {
		weights[i] = w
		w++
		if w > 9 {
			w = 2
		}
	}
	return weights
}

// ValidateCNPJ checks the two mod-11 check digits of a CNPJ. Accepts both
// formatted ("12.345.678/0001-95") and bare ("12345678000195") input.
func ValidateCNPJ(value string) bool {
	digits := OnlyDigits(value)
	if len(digits) != 14 || allEqual(digits) {
		return false
	}

	first := mod11Digit(weightedSum(digits[:12], cnpjWeights(12)))
	if first != int(digits[12]-'0') {
		return false
	}

	second := mod11Digit(weightedSum(digits[:13], cnpjWeights(13)))
	return second == int(digits[13]-'0')
}

// ValidateCPF checks the two check digits of a CPF (11 digits, weights 10..2
// then 11..2).
func ValidateCPF(value string) bool {
	digits := OnlyDigits(value)
	if len(digits) != 11 || allEqual(digits) {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(digits[i]-'0') * (10 - i)
	}
	first := mod11Digit(sum)
	if first != int(digits[9]-'0') {
		return false
	}

	sum = 0
	for i := 0; i < 10; i++ {
		sum += int(digits[i]-'0') * (11 - i)
	}
	return mod11Digit(sum) == int(digits[10]-'0')
}

// ValidateCFOP accepts exactly four digits with a positive numeric value.
func ValidateCFOP(value string) bool {
	if len(value) != 4 {
		return false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	return n > 0
}

// ValidateNCM accepts exactly eight digits after stripping punctuation.
func ValidateNCM(value string) bool {
	return len(OnlyDigits(value)) == 8
}

// FormatCNPJ renders 14 digits as 00.000.000/0000-00. Idempotent: formatted
// input comes back unchanged. Input that is not a CNPJ shape is returned
// as-is.
func FormatCNPJ(value string) string {
	digits := OnlyDigits(value)
	if len(digits) != 14 {
		return value
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", digits[0:2], digits[2:5], digits[5:8], digits[8:12], digits[12:14])
}

// FormatCPF renders 11 digits as 000.000.000-00, idempotently.
func FormatCPF(value string) string {
	digits := OnlyDigits(value)
	if len(digits) != 11 {
		return value
	}
	return fmt.Sprintf("%s.%s.%s-%s", digits[0:3], digits[3:6], digits[6:9], digits[9:11])
}
