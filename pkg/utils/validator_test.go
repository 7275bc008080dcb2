package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateGSTIN(t *testing.T) {
	assert.NoError(t, ValidateGSTIN("27AABCS1234F1Z5"))
	assert.NoError(t, ValidateGSTIN(" 27aabcs1234f1z5 "))
	assert.Error(t, ValidateGSTIN("27AABCS1234F1"))
	assert.Error(t, ValidateGSTIN("XXAABCS1234F1Z5"))
	assert.Error(t, ValidateGSTIN(""))
}

func TestValidatePAN(t *testing.T) {
	assert.NoError(t, ValidatePAN("AABCS1234F"))
	assert.Error(t, ValidatePAN("AABCS123"))
	assert.Error(t, ValidatePAN("1ABCS1234F"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Shree Traders", SanitizeString("Shree\x00 Traders\x1f"))
	assert.Equal(t, "plain", SanitizeString("plain"))
}
