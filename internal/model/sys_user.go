package model

import "time"

// 用户角色常量
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// SysUser 管理后台账号
type SysUser struct {
	BaseModel
	Username string `gorm:"size:100;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"` // bcrypt 哈希
	Email    string `gorm:"size:100"`

	// 系统级角色: admin (管理员), user (只读)
	Role string `gorm:"size:20;default:'user'"`

	IsActive    bool       `gorm:"default:true"`
	LastLoginAt *time.Time `gorm:"comment:最后登录时间"`
}

func (SysUser) TableName() string {
	return "sys_users"
}
