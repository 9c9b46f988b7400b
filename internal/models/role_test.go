package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCapabilityTable(t *testing.T) {
	// The full table: every (role, action) pair has a fixed answer.
	testCases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleOwner, ActionViewBoard, true},
		{RoleOwner, ActionEditCards, true},
		{RoleOwner, ActionCreateInvite, true},
		{RoleOwner, ActionListInvites, true},
		{RoleOwner, ActionManageBoard, true},

		{RoleEditor, ActionViewBoard, true},
		{RoleEditor, ActionEditCards, true},
		{RoleEditor, ActionCreateInvite, false},
		{RoleEditor, ActionListInvites, false},
		{RoleEditor, ActionManageBoard, false},

		{RoleViewer, ActionViewBoard, true},
		{RoleViewer, ActionEditCards, false},
		{RoleViewer, ActionCreateInvite, false},
		{RoleViewer, ActionListInvites, false},
		{RoleViewer, ActionManageBoard, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.role)+"/"+string(tc.action), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.role.Can(tc.action))
		})
	}
}

func TestUnknownRoleDeniesEverything(t *testing.T) {
	for _, action := range []Action{ActionViewBoard, ActionEditCards, ActionCreateInvite, ActionListInvites, ActionManageBoard} {
		assert.False(t, Role("admin").Can(action))
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"owner", "editor", "viewer"} {
		role, err := ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, Role(valid), role)
	}

	for _, invalid := range []string{"", "admin", "Owner", "OWNER", "member"} {
		_, err := ParseRole(invalid)
		assert.Error(t, err, "expected %q to be rejected", invalid)
	}
}

func TestParseInviteRole(t *testing.T) {
	role, err := ParseInviteRole("viewer")
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, role)

	role, err = ParseInviteRole("editor")
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, role)

	_, err = ParseInviteRole("owner")
	assert.Error(t, err, "ownership must not be grantable through an invite")
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleEditor))
	assert.True(t, RoleOwner.AtLeast(RoleViewer))
	assert.True(t, RoleEditor.AtLeast(RoleViewer))
	assert.False(t, RoleViewer.AtLeast(RoleEditor))
	assert.False(t, RoleEditor.AtLeast(RoleOwner))
	assert.True(t, RoleViewer.AtLeast(RoleViewer))
}
