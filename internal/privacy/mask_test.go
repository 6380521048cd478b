package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "email",
			in:   "mail me at ali.veli@example.com please",
			want: "mail me at [EMAIL] please",
		},
		{
			name: "email with digits is not split",
			in:   "write to user12345678901234567@mail.co",
			want: "write to [EMAIL]",
		},
		{
			name: "turkish mobile with spaces",
			in:   "Call John at 0532 123 45 67 tomorrow",
			want: "Call John at [PHONE] tomorrow",
		},
		{
			name: "country code",
			in:   "ara +90 532 123 45 67",
			want: "ara [PHONE]",
		},
		{
			name: "compact mobile",
			in:   "tel: 05321234567",
			want: "tel: [PHONE]",
		},
		{
			name: "dashes",
			in:   "532-123-45-67 numarasi",
			want: "[PHONE] numarasi",
		},
		{
			name: "card number",
			in:   "card 4111111111111111 ok",
			want: "card [SENSITIVE_DATA] ok",
		},
		{
			name: "long account number",
			in:   "iban 12345678901234567890",
			want: "iban [SENSITIVE_DATA]",
		},
		{
			name: "fifteen digits stay",
			in:   "ref 123456789012345",
			want: "ref 123456789012345",
		},
		{
			name: "plain text",
			in:   "Buy milk, room 42",
			want: "Buy milk, room 42",
		},
		{
			name: "all classes",
			in:   "a@b.io 0532 123 45 67 4111111111111111",
			want: "[EMAIL] [PHONE] [SENSITIVE_DATA]",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.in))
		})
	}
}

func TestMasker(t *testing.T) {
	in := "a@b.io"

	assert.Equal(t, "[EMAIL]", Masker{Enabled: true}.Apply(in))
	assert.Equal(t, in, Masker{}.Apply(in))
}
