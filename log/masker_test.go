/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMasker_DefaultMasks(t *testing.T) {
	masker := NewMasker(DefaultMasks)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "authorization header",
			in:   "POST /documents\r\nAuthorization: Bearer eyJhbGciOi\r\nContent-Type: application/json",
			want: "POST /documents\r\nAuthorization: ***\r\nContent-Type: application/json",
		},
		{
			name: "signature header in lower case",
			in:   "signature: MIIBase64==",
			want: "Signature: ***",
		},
		{
			name: "json token field",
			in:   `{"token": "secret-value", "doc_id": "42"}`,
			want: `{"token": "***", "doc_id": "42"}`,
		},
		{
			name: "json signature with escaped quote",
			in:   `{"signature":"ab\"cd"}`,
			want: `{"signature": "***"}`,
		},
		{
			name: "nothing to mask",
			in:   "document accepted by API",
			want: "document accepted by API",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, masker.Mask(tt.in))
		})
	}
}

func TestMasker_CustomMasks(t *testing.T) {
	masker := NewMasker([]MaskingRuleConfig{{
		Field: "inn",
		Masks: []MaskConfig{{RegExp: `inn=\d+`, Mask: "inn=***"}},
	}})
	require.Equal(t, "owner inn=*** accepted", masker.Mask("owner inn=7700000000 accepted"))
}

func TestNewMask_InvalidRegExp(t *testing.T) {
	require.Panics(t, func() { NewMask(MaskConfig{RegExp: "(", Mask: "***"}) })
}
