// Package model はドメインモデルを定義する。
package model

import "time"

// Role はクリニック内でのユーザー権限を表す。
type Role string

const (
	// RoleAdmin はクリニック設定とユーザー管理が可能な管理者。
	RoleAdmin Role = "admin"
	// RoleStaff は日常業務（患者・施術・請求）を扱うスタッフ。
	RoleStaff Role = "staff"
)

// IsValid はRoleが定義済みの値かどうかを返す。
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// User はクリニックに所属するログインユーザーを表す。
type User struct {
	ID           string
	ClinicID     string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clinic はテナント単位となるクリニックを表す。
type Clinic struct {
	ID        string
	Name      string
	Address   string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
