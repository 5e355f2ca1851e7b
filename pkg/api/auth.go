package api

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,min=1,max=64"` // отображаемое имя
	Email    string `json:"email"    validate:"required,email"`        // уникальный email
	Password string `json:"password" validate:"required,min=8"`       // пароль (минимум 8 символов)
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"` // email пользователя
	Password string `json:"password" validate:"required"`       // пароль
}

// AuthResponse представляет ответ на успешную аутентификацию.
// Refresh token в теле не возвращается — он доставляется только
// через http-only cookie, ограниченную путём /auth.
type AuthResponse struct {
	Success     bool   `json:"success"`     // признак успеха
	AccessToken string `json:"accessToken"` // JWT access token
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
