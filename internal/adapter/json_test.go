package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealJSON_Unmarshal(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		expectError bool
	}{
		{name: "single document", data: `{"name":"Dawn"}`},
		{name: "trailing newline", data: "{\"name\":\"Dawn\"}\n"},
		{name: "trailing document", data: `{"name":"Dawn"}{"name":"Dusk"}`, expectError: true},
		{name: "trailing garbage", data: `{"name":"Dawn"} <html>`, expectError: true},
		{name: "malformed", data: `{"name":`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				Name string `json:"name"`
			}
			err := NewJSON().Unmarshal([]byte(tt.data), &v)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Dawn", v.Name)
		})
	}
}
