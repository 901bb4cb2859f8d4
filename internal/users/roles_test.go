package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolesScanner(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want []string
	}{
		{name: "single role", src: "{customer}", want: []string{"customer"}},
		{name: "multiple roles", src: "{customer,admin}", want: []string{"customer", "admin"}},
		{name: "bytes", src: []byte("{delivery_partner}"), want: []string{"delivery_partner"}},
		{name: "empty array", src: "{}", want: nil},
		{name: "null", src: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var roles []string
			err := (&rolesScanner{dest: &roles}).Scan(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, roles)
		})
	}
}

func TestRolesScannerRejectsUnknownType(t *testing.T) {
	var roles []string
	err := (&rolesScanner{dest: &roles}).Scan(42)
	assert.Error(t, err)
}

func TestRolesArray(t *testing.T) {
	assert.Equal(t, "{customer}", rolesArray("customer"))
}
