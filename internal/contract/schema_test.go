package contract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercado-qa/internal/contract"
)

var marketSchema = map[string]any{
	"type":     "object",
	"required": []any{"novoMercado"},
	"properties": map[string]any{
		"novoMercado": map[string]any{
			"type":     "object",
			"required": []any{"id", "cnpj"},
			"properties": map[string]any{
				"id":   map[string]any{"type": "integer"},
				"cnpj": map[string]any{"type": "string"},
			},
		},
	},
}

func TestValidateSchema(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"novoMercado":{"id":1,"cnpj":"12345678901234"}}`, false},
		{"missing cnpj", `{"novoMercado":{"id":1}}`, true},
		{"wrong id type", `{"novoMercado":{"id":"1","cnpj":"x"}}`, true},
		{"not json", `<html>`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := contract.ValidateSchema(marketSchema, []byte(tc.body))
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompileSchema(t *testing.T) {
	s, err := contract.CompileSchema(marketSchema)
	require.NoError(t, err)
	assert.Contains(t, s.Required, "novoMercado")
}
