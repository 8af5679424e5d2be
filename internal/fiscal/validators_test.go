package fiscal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCNPJ(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{name: "valid bare", value: "11222333000181", valid: true},
		{name: "valid formatted", value: "11.222.333/0001-81", valid: true},
		{name: "valid second sample", value: "06.990.590/0001-23", valid: true},
		{name: "flipped first check digit", value: "11222333000171", valid: false},
		{name: "flipped second check digit", value: "11222333000180", valid: false},
		{name: "flipped body digit", value: "11222334000181", valid: false},
		{name: "all equal digits", value: "00000000000000", valid: false},
		{name: "all equal formatted", value: "11.111.111/1111-11", valid: false},
		{name: "too short", value: "1122233300018", valid: false},
		{name: "too long", value: "112223330001811", valid: false},
		{name: "empty", value: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateCNPJ(tt.value))
		})
	}
}

func TestValidateCPF(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{name: "valid bare", value: "52998224725", valid: true},
		{name: "valid formatted", value: "529.982.247-25", valid: true},
		{name: "flipped first check digit", value: "52998224735", valid: false},
		{name: "flipped second check digit", value: "52998224724", valid: false},
		{name: "all equal digits", value: "11111111111", valid: false},
		{name: "too short", value: "5299822472", valid: false},
		{name: "empty", value: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateCPF(tt.value))
		})
	}
}

func TestValidateCFOP(t *testing.T) {
	assert.True(t, ValidateCFOP("5102"))
	assert.True(t, ValidateCFOP("6108"))
	assert.False(t, ValidateCFOP("0000"))
	assert.False(t, ValidateCFOP("510"))
	assert.False(t, ValidateCFOP("51020"))
	assert.False(t, ValidateCFOP("51a2"))
	assert.False(t, ValidateCFOP(""))
}

func TestValidateNCM(t *testing.T) {
	assert.True(t, ValidateNCM("84713012"))
	assert.True(t, ValidateNCM("8471.30.12"))
	assert.False(t, ValidateNCM("8471301"))
	assert.False(t, ValidateNCM("847130123"))
	assert.False(t, ValidateNCM(""))
}

func TestFormatCNPJIdempotent(t *testing.T) {
	once := FormatCNPJ("11222333000181")
	assert.Equal(t, "11.222.333/0001-81", once)
	assert.Equal(t, once, FormatCNPJ(once))
}

func TestFormatCPFIdempotent(t *testing.T) {
	once := FormatCPF("52998224725")
	assert.Equal(t, "529.982.247-25", once)
	assert.Equal(t, once, FormatCPF(once))
}

func TestOnlyDigits(t *testing.T) {
	assert.Equal(t, "11222333000181", OnlyDigits("11.222.333/0001-81"))
	assert.Equal(t, "", OnlyDigits("abc"))
}
