// Package model はドメインモデルを定義する。
package model

import "time"

// Role は利用者の立場（起業家または投資家）を表す。
type Role string

const (
	// RoleFounder はスタートアップの創業者。
	RoleFounder Role = "founder"
	// RoleInvestor は投資家。
	RoleInvestor Role = "investor"
)

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleFounder || r == RoleInvestor
}

// Counterpart はダッシュボードに表示する相手側のロールを返す。
func (r Role) Counterpart() Role {
	if r == RoleFounder {
		return RoleInvestor
	}
	return RoleFounder
}

// Identity は登録済みの利用者を表す。
// usersキーの配列要素としてJSONで保存されるため、フィールド名は保存形式と一致させる。
type Identity struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"password"` // argon2idのPHC文字列
	Role        Role      `json:"role"`
	Company     string    `json:"company"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Session はブラウザ1つ分のログインセッションを表す。
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
