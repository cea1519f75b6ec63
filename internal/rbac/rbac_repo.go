package rbac

//go:generate mockgen -source=rbac_repo.go -destination=mock/rbac_repo_mock.go -package=mock
type Repository interface {
	GetRolePermissions() ([]RolePermissionRow, error)
	GetRoleParents() ([]RoleParentRow, error)
}

type RolePermissionRow struct {
	Role     string
	Resource string
	Action   string
}

// RoleParentRow makes Role inherit every permission of Parent.
type RoleParentRow struct {
	Role   string
	Parent string
}

const (
	RoleAdmin    = "admin"
	RoleRecorder = "recorder"
	RoleViewer   = "viewer"

	ResourceRecord    = "record"
	ResourceAnalytics = "analytics"
)

// Viewer reads, recorder also writes records, admin may do anything with records.
var defaultPermissions = []RolePermissionRow{
	{Role: RoleViewer, Resource: ResourceRecord, Action: "read"},
	{Role: RoleViewer, Resource: ResourceAnalytics, Action: "read"},
	{Role: RoleRecorder, Resource: ResourceRecord, Action: "create"},
	{Role: RoleRecorder, Resource: ResourceRecord, Action: "update"},
	{Role: RoleAdmin, Resource: ResourceRecord, Action: "*"},
}

var defaultParents = []RoleParentRow{
	{Role: RoleRecorder, Parent: RoleViewer},
	{Role: RoleAdmin, Parent: RoleRecorder},
}

type staticRepository struct {
	permissions []RolePermissionRow
	parents     []RoleParentRow
}

// NewRepository returns the built-in role policy.
func NewRepository() Repository {
	return &staticRepository{permissions: defaultPermissions, parents: defaultParents}
}

func (r *staticRepository) GetRolePermissions() ([]RolePermissionRow, error) {
	out := make([]RolePermissionRow, len(r.permissions))
	copy(out, r.permissions)
	return out, nil
}

func (r *staticRepository) GetRoleParents() ([]RoleParentRow, error) {
	out := make([]RoleParentRow, len(r.parents))
	copy(out, r.parents)
	return out, nil
}
