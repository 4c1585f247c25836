package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		locale string
		want   string
	}{
		{"de", "5.3.2024"},
		{"de-AT", "5.3.2024"},
		{"en-US", "3/5/2024"},
		{"en-GB", "05/03/2024"},
		{"fr", "05/03/2024"},
		{"nl", "5-3-2024"},
		{"", "5.3.2024"},
		{"ja", "5.3.2024"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDate(d, tt.locale))
		})
	}
}
