// Package validation проверяет входные данные на границе API
// до того, как они попадут в бизнес-логику.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxPasswordLen максимальная длина пароля.
	// bcrypt использует только первые 72 байта, более длинный ввод отклоняем явно.
	MaxPasswordLen = 72
)

// validate — один экземпляр на процесс, потокобезопасен (кеширует метаданные структур)
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct проверяет структуру запроса по validate-тегам полей
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if ok := errors.As(err, &verrs); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %q failed validation rule %q", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidatePassword проверяет требования к паролю при регистрации
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLen)
	}

	return nil
}

// ValidateEmail проверяет формат email отдельно от структуры
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
