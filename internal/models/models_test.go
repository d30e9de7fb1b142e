package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCapabilityTable(t *testing.T) {
	assert.True(t, HasCapability(RoleAdmin, CapCreateUsers))
	assert.True(t, HasCapability(RoleAdmin, CapExportLogs))
	assert.True(t, HasCapability(RoleModerator, CapModeratePosts))
	assert.False(t, HasCapability(RoleModerator, CapCreateUsers))
	assert.False(t, HasCapability(RoleModerator, CapReadAllLogs))
	assert.False(t, HasCapability(UserRole("GUEST"), CapReadLogs))

	var actor *Actor
	assert.False(t, actor.Can(CapReadLogs))
	assert.True(t, (&Actor{Role: RoleAdmin}).Can(CapChangeRoles))
}

func TestDetailsValueScan(t *testing.T) {
	in := Details{"old": map[string]interface{}{"title": "a"}, "new": map[string]interface{}{"title": "b"}}
	raw, err := in.Value()
	require.NoError(t, err)

	var out Details
	require.NoError(t, out.Scan(raw))
	assert.Equal(t, "a", out["old"].(map[string]interface{})["title"])
	assert.Equal(t, "b", out["new"].(map[string]interface{})["title"])

	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
	assert.Error(t, out.Scan(42))

	empty, err := Details(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), empty)
}

func TestEnums(t *testing.T) {
	assert.True(t, SectionGaming.Valid())
	assert.False(t, SectionType("COOKING").Valid())
	info, ok := SectionNews.Info()
	require.True(t, ok)
	assert.Equal(t, "News", info.DisplayName)
	assert.Len(t, SectionTypes, 8)

	assert.True(t, ApprovalAutoApproved.Visible())
	assert.False(t, ApprovalPending.Visible())
	assert.Equal(t, FileTypeJPEG, FileTypeFromExtension(".jpeg"))
	assert.Equal(t, FileTypeUnknown, FileTypeFromExtension("gif"))
	assert.True(t, ActionUserPasswordChanged.Valid())
	assert.False(t, ModerationAction("POST_LIKED").Valid())
}

func TestActionCountJSON(t *testing.T) {
	raw, err := json.Marshal(GlobalLogStats{ActionsByType: map[ModerationAction]int64{ActionPostCreated: 2}})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"POST_CREATED":2`)
}
