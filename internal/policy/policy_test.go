package policy

import (
	"testing"

	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/stretchr/testify/assert"
)

func TestIsAuthor(t *testing.T) {
	assert.True(t, IsAuthor(5, 5))
	assert.False(t, IsAuthor(5, 6))
	assert.False(t, IsAuthor(0, 0), "anonymous actor never owns anything")
}

func TestCanModerate(t *testing.T) {
	cases := map[string]bool{
		RoleAdmin:      true,
		RoleModerator:  true,
		RoleInstructor: false,
		RoleStudent:    false,
		"":             false,
	}
	for role, want := range cases {
		assert.Equal(t, want, CanModerate(role), "role %q", role)
	}
}

func TestRequireHelpersReturnForbidden(t *testing.T) {
	student := Actor{ID: 2, Role: RoleStudent}
	mod := Actor{ID: 3, Role: RoleModerator}

	assert.NoError(t, RequireAuthor(student, 2, "编辑"))
	assert.True(t, errcode.IsKind(RequireAuthor(mod, 2, "编辑"), errcode.KindForbidden))

	assert.NoError(t, RequireModerator(mod, "置顶"))
	assert.True(t, errcode.IsKind(RequireModerator(student, "置顶"), errcode.KindForbidden))

	assert.NoError(t, RequireAuthorOrModerator(student, 2, "删除"))
	assert.NoError(t, RequireAuthorOrModerator(mod, 2, "删除"))
	assert.True(t, errcode.IsKind(RequireAuthorOrModerator(student, 9, "删除"), errcode.KindForbidden))
}
