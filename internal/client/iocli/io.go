// Package iocli абстрагирует терминальный ввод-вывод CLI клиента,
// чтобы команды можно было тестировать без реального терминала
package iocli

// IO описывает операции терминала, нужные командам CLI
type IO interface {
	// Println печатает аргументы с переводом строки
	Println(a ...any)
	// Printf печатает по формату
	Printf(format string, a ...any)
	// ReadInput печатает prompt и читает строку до перевода
	ReadInput(prompt string) (string, error)
	// ReadPassword печатает prompt и читает пароль без эха
	ReadPassword(prompt string) (string, error)
}
