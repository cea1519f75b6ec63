package rbac_test

import (
	"testing"

	"go-safety/internal/domain"
	"go-safety/internal/rbac"
	"go-safety/internal/rbac/infra"

	"github.com/stretchr/testify/assert"
)

func newLoadedService(t *testing.T) rbac.Service {
	t.Helper()
	enforcer, err := infra.NewEnforcer("")
	assert.NoError(t, err)

	svc := rbac.NewService(rbac.NewRepository(), enforcer)
	assert.NoError(t, svc.LoadPolicy())
	return svc
}

func TestRBACService_Enforce(t *testing.T) {
	svc := newLoadedService(t)

	cases := []struct {
		role, resource, action string
		allowed                bool
	}{
		{"viewer", "record", "read", true},
		{"viewer", "analytics", "read", true},
		{"viewer", "record", "create", false},
		{"recorder", "record", "create", true},
		{"recorder", "record", "update", true},
		{"recorder", "analytics", "read", true},
		{"recorder", "record", "delete", false},
		{"admin", "record", "delete", true},
		{"admin", "analytics", "read", true},
		{"admin", "analytics", "delete", false},
		{"stranger", "record", "read", false},
	}

	for _, tc := range cases {
		t.Run(tc.role+" "+tc.resource+":"+tc.action, func(t *testing.T) {
			allowed, err := svc.Enforce(domain.EnforceRequest{Role: tc.role, Resource: tc.resource, Action: tc.action})
			assert.NoError(t, err)
			assert.Equal(t, tc.allowed, allowed)
		})
	}
}

func TestRBACService_LoadPolicyIsRepeatable(t *testing.T) {
	svc := newLoadedService(t)
	assert.NoError(t, svc.LoadPolicy())

	allowed, err := svc.Enforce(domain.EnforceRequest{Role: "viewer", Resource: "record", Action: "read"})
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestRBACService_PermissionsForRole(t *testing.T) {
	svc := newLoadedService(t)

	perms, err := svc.PermissionsForRole("recorder")

	assert.NoError(t, err)
	assert.ElementsMatch(t, []domain.PermissionResponse{
		{Resource: "record", Action: "read"},
		{Resource: "analytics", Action: "read"},
		{Resource: "record", Action: "create"},
		{Resource: "record", Action: "update"},
	}, perms)
}
