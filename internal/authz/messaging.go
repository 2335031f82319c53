package authz

// messagingTable is the per-recipient messaging permission table used
// by the messaging service. It is a static adjacency table, not a
// hierarchy, and is deliberately kept separate from the role-level
// check in Authorize.
var messagingTable = map[Role]map[Role]bool{
	RoleAdmin: {
		RoleAdmin:   true,
		RoleTeacher: true,
		RoleParent:  true,
		RoleStudent: true,
	},
	RoleTeacher: {
		RoleAdmin:   true,
		RoleTeacher: true,
		RoleParent:  true,
		RoleStudent: true,
	},
	RoleParent: {
		RoleAdmin:   true,
		RoleTeacher: true,
	},
	RoleStudent: {
		RoleTeacher: true,
		RoleStudent: true,
	},
}

// CanMessage reports whether sender may address a direct message to
// recipient. Unknown roles on either side deny.
func CanMessage(sender, recipient Role) bool {
	recipients, ok := messagingTable[sender]
	if !ok {
		return false
	}
	return recipients[recipient]
}
