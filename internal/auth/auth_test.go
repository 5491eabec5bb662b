package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestHeaderAuthorizer(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    Actor
		wantErr bool
	}{
		{
			name:    "finance user",
			headers: map[string]string{HeaderActorID: "12", HeaderOrganizationID: "3", HeaderRole: "finance"},
			want:    Actor{ID: 12, OrganizationID: 3, Role: RoleFinance},
		},
		{
			name:    "missing actor",
			headers: map[string]string{HeaderOrganizationID: "3", HeaderRole: "finance"},
			wantErr: true,
		},
		{
			name:    "bad organization",
			headers: map[string]string{HeaderActorID: "12", HeaderOrganizationID: "x", HeaderRole: "admin"},
			wantErr: true,
		},
		{
			name:    "missing role",
			headers: map[string]string{HeaderActorID: "12", HeaderOrganizationID: "3"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			got, err := HeaderAuthorizer{}.Resolve(r)
			if tt.wantErr {
				assert.IsError(t, err, ErrUnauthenticated)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanReconcile(t *testing.T) {
	assert.True(t, Actor{Role: RoleAdmin}.CanReconcile())
	assert.True(t, Actor{Role: RoleFinance}.CanReconcile())
	assert.False(t, Actor{Role: RoleViewer}.CanReconcile())
	assert.False(t, Actor{Role: "payroll"}.CanReconcile())
}
