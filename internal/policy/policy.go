// Package policy 作者身份与管理角色的权限判断，不持有任何状态
package policy

import "github.com/nsxzhou1114/lms-forum-api/pkg/errcode"

// 角色
const (
	RoleAdmin      = "admin"
	RoleModerator  = "moderator"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// Actor 当前操作者
type Actor struct {
	ID   uint
	Role string
}

// IsAuthor 是否为资源作者
func IsAuthor(actorID, authorID uint) bool {
	return actorID != 0 && actorID == authorID
}

// CanModerate 是否具备管理权限
func CanModerate(role string) bool {
	return role == RoleAdmin || role == RoleModerator
}

// RequireAuthor 仅作者可操作
func RequireAuthor(actor Actor, authorID uint, action string) error {
	if !IsAuthor(actor.ID, authorID) {
		return errcode.NewForbidden("只有作者可以" + action)
	}
	return nil
}

// RequireModerator 仅管理员或版主可操作
func RequireModerator(actor Actor, action string) error {
	if !CanModerate(actor.Role) {
		return errcode.NewForbidden("需要管理员或版主权限才能" + action)
	}
	return nil
}

// RequireAuthorOrModerator 作者或管理者可操作
func RequireAuthorOrModerator(actor Actor, authorID uint, action string) error {
	if IsAuthor(actor.ID, authorID) || CanModerate(actor.Role) {
		return nil
	}
	return errcode.NewForbidden("只有作者或管理员可以" + action)
}
