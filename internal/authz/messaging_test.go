package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sender    Role
		recipient Role
		want      bool
	}{
		{name: "admin to student", sender: RoleAdmin, recipient: RoleStudent, want: true},
		{name: "admin to admin", sender: RoleAdmin, recipient: RoleAdmin, want: true},
		{name: "teacher to parent", sender: RoleTeacher, recipient: RoleParent, want: true},
		{name: "teacher to student", sender: RoleTeacher, recipient: RoleStudent, want: true},
		{name: "parent to teacher", sender: RoleParent, recipient: RoleTeacher, want: true},
		{name: "parent to admin", sender: RoleParent, recipient: RoleAdmin, want: true},
		{name: "parent to student", sender: RoleParent, recipient: RoleStudent, want: false},
		{name: "parent to parent", sender: RoleParent, recipient: RoleParent, want: false},
		{name: "student to teacher", sender: RoleStudent, recipient: RoleTeacher, want: true},
		{name: "student to student", sender: RoleStudent, recipient: RoleStudent, want: true},
		{name: "student to admin", sender: RoleStudent, recipient: RoleAdmin, want: false},
		{name: "student to parent", sender: RoleStudent, recipient: RoleParent, want: false},
		{name: "unknown sender", sender: Role("bot"), recipient: RoleStudent, want: false},
		{name: "unknown recipient", sender: RoleAdmin, recipient: Role("bot"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanMessage(tt.sender, tt.recipient))
		})
	}
}

// The messaging table is an adjacency rule, not the role hierarchy: a
// parent outranks a student but still cannot message one.
func TestCanMessage_NotHierarchical(t *testing.T) {
	t.Parallel()

	assert.True(t, Authorize(RoleParent, RoleStudent))
	assert.False(t, CanMessage(RoleParent, RoleStudent))
}
