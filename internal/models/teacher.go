package models

import "time"

// Teacher represents an instructor record together with the substitution flags used for matching.
type Teacher struct {
	ID                       string    `db:"id" json:"id"`
	Email                    string    `db:"email" json:"email"`
	FullName                 string    `db:"full_name" json:"full_name"`
	DepartmentID             *string   `db:"department_id" json:"department_id,omitempty"`
	AvailableForSubstitution bool      `db:"available_for_substitution" json:"available_for_substitution"`
	Active                   bool      `db:"active" json:"active"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time `db:"updated_at" json:"updated_at"`
}

// SharesDepartment reports whether both teachers belong to the same non-null department.
func (t Teacher) SharesDepartment(other Teacher) bool {
	if t.DepartmentID == nil || other.DepartmentID == nil {
		return false
	}
	return *t.DepartmentID == *other.DepartmentID
}
