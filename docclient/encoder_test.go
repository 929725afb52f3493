/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package docclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONEncoder_WireFieldNames(t *testing.T) {
	body, err := JSONEncoder{}.Encode(newTestDocument())
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &raw))
	for _, key := range []string{
		"description", "doc_id", "doc_status", "doc_type", "importRequest", "owner_inn", "participant_inn",
		"producer_inn", "production_date", "production_type", "products", "reg_date", "reg_number",
	} {
		require.Contains(t, raw, key)
	}
	require.Equal(t, map[string]interface{}{"participantInn": "7700000000"}, raw["description"])

	products := raw["products"].([]interface{})
	require.Len(t, products, 1)
	product := products[0].(map[string]interface{})
	for _, key := range []string{
		"certificate_document", "certificate_document_date", "certificate_document_number", "owner_inn",
		"producer_inn", "production_date", "tnved_code", "uit_code", "uitu_code",
	} {
		require.Contains(t, product, key)
	}
}

func TestResult_Succeeded(t *testing.T) {
	for status, want := range map[int]bool{199: false, 200: true, 201: true, 299: true, 300: false, 401: false, 500: false} {
		require.Equal(t, want, (&Result{StatusCode: status}).Succeeded(), "status %d", status)
	}
}
