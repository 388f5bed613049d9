package rbac

// RoleDraft is the unsaved state of the role editor.
type RoleDraft struct {
	RoleID      int64
	Name        string
	Description string
	Selected    PermissionSet
}

// NewRoleDraft starts an empty draft.
func NewRoleDraft() *RoleDraft {
	return &RoleDraft{Selected: NewPermissionSet()}
}

// DraftFromRole starts a draft from a stored role.
func DraftFromRole(role Role) *RoleDraft {
	return &RoleDraft{
		RoleID:      role.ID,
		Name:        role.Name,
		Description: role.Description,
		Selected:    role.PermissionSet(),
	}
}

// TogglePermission flips one permission and reports whether it is now selected.
func (d *RoleDraft) TogglePermission(id int64) bool {
	return d.Selected.Toggle(id)
}

// ToggleCategoryPermissions deselects the whole category when every member is
// selected and selects the whole category otherwise.
func (d *RoleDraft) ToggleCategoryPermissions(ids []int64) {
	category := NewPermissionSet(ids...)
	if category.Len() == 0 {
		return
	}
	if d.Selected.ContainsAll(category) {
		d.Selected.Remove(ids...)
		return
	}
	d.Selected.Add(ids...)
}

// IsCategorySelected reports whether at least one category member is selected.
func (d *RoleDraft) IsCategorySelected(ids []int64) bool {
	for _, id := range ids {
		if d.Selected.Has(id) {
			return true
		}
	}
	return false
}

// CountSelectedInCategory counts the selected members of the category.
func (d *RoleDraft) CountSelectedInCategory(ids []int64) int {
	return d.Selected.Intersect(NewPermissionSet(ids...)).Len()
}

// Input converts the draft into the payload saved by CreateRole/UpdateRole.
func (d *RoleDraft) Input() RoleInput {
	return RoleInput{Name: d.Name, Description: d.Description, PermissionIDs: d.Selected.IDs()}
}
