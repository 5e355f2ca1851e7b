package models

import "time"

// AuthProvider определяет способ аутентификации учетной записи
type AuthProvider string

const (
	// ProviderEmail — аутентификация по email и паролю
	ProviderEmail AuthProvider = "email"
	// ProviderGoogle — внешняя аутентификация через Google (без пароля)
	ProviderGoogle AuthProvider = "google"
)

// User представляет пользователя в системе.
// Пользователи никогда не удаляются физически — только деактивируются (IsActive=false).
type User struct {
	ID            string     `json:"id"`             // UUID пользователя
	Name          string     `json:"name"`           // отображаемое имя
	ProfilePic    *string    `json:"profile_pic"`    // URL аватара, nil если не задан
	IsActive      bool       `json:"is_active"`      // false — учетная запись деактивирована
	EmailVerified bool       `json:"email_verified"` // подтвержден ли email
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Credential представляет учетные данные пользователя для одного провайдера.
// На один email может существовать не более одной записи с provider=email.
// PasswordHash отсутствует для внешних провайдеров.
type Credential struct {
	ID           string       `json:"id"`      // UUID записи
	UserID       string       `json:"user_id"` // владелец
	Provider     AuthProvider `json:"provider"`
	Email        string       `json:"email"`         // уникальный email
	PasswordHash *string      `json:"password_hash"` // bcrypt хеш пароля, nil для внешних провайдеров
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Session представляет одну залогиненную сессию (устройство/браузер).
// Valid=false — терминальное состояние: ни одна операция не возвращает
// сессию обратно в активное состояние. Сессии не удаляются физически.
type Session struct {
	ID               string    `json:"id"`      // UUID сессии
	UserID           string    `json:"user_id"` // владелец
	UserAgent        *string   `json:"user_agent"`
	IPAddress        *string   `json:"ip_address"`
	RefreshTokenHash *string   `json:"refresh_token_hash"` // bcrypt хеш текущего refresh token
	Valid            bool      `json:"valid"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ClientMeta содержит информационные метаданные клиента при создании сессии
type ClientMeta struct {
	UserAgent *string
	IPAddress *string
}
