package models

import (
	"fmt"

	"github.com/hashicorp/go-set/v3"
)

// Role is a member's capability level on a board.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Action is a board-scoped operation subject to a permission check.
type Action string

const (
	ActionViewBoard    Action = "view_board"
	ActionEditCards    Action = "edit_cards"
	ActionCreateInvite Action = "create_invite"
	ActionListInvites  Action = "list_invites"
	ActionManageBoard  Action = "manage_board"
)

// capabilities is the full permission table. Every authorization decision
// in the service reduces to a lookup here.
var capabilities = map[Role]*set.Set[Action]{
	RoleOwner: set.From([]Action{
		ActionViewBoard,
		ActionEditCards,
		ActionCreateInvite,
		ActionListInvites,
		ActionManageBoard,
	}),
	RoleEditor: set.From([]Action{
		ActionViewBoard,
		ActionEditCards,
	}),
	RoleViewer: set.From([]Action{
		ActionViewBoard,
	}),
}

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleOwner:  3,
}

// ParseRole converts user input into a Role. Anything outside the three
// known roles is rejected here so bad values never reach a store or the
// permission table.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ParseInviteRole is ParseRole restricted to roles an invite may grant.
// Ownership is never grantable through an invite.
func ParseInviteRole(s string) (Role, error) {
	r, err := ParseRole(s)
	if err != nil {
		return "", err
	}
	if r == RoleOwner {
		return "", fmt.Errorf("invites cannot grant the owner role")
	}
	return r, nil
}

// Can reports whether the role may perform the action.
func (r Role) Can(a Action) bool {
	allowed, ok := capabilities[r]
	return ok && allowed.Contains(a)
}

// AtLeast reports whether the role ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}
