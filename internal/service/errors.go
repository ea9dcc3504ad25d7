package service

import "errors"

var (
	// ErrInvalidArgument — нарушены ограничения входных данных.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — сущность не найдена или принадлежит другому пользователю.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — конфликт уникальности.
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmailTaken — email уже зарегистрирован.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUnauthenticated — операция требует аутентификации.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken — токен некорректен (подпись, формат, issuer/audience).
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — токен просрочен.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked — refresh-токен отозван.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrCaptchaFailed — проверка CAPTCHA не пройдена.
	ErrCaptchaFailed = errors.New("captcha verification failed")
	// ErrUnavailable — внешний сервис недоступен или не сконфигурирован.
	ErrUnavailable = errors.New("service unavailable")
	// ErrInternal — непредвиденная внутренняя ошибка.
	ErrInternal = errors.New("internal error")
	// ErrRefreshTokenCollision — не удалось получить уникальный refresh-токен.
	ErrRefreshTokenCollision = errors.New("refresh token collision")
)

// InputError — ошибка валидации с сообщением, безопасным для показа
// пользователю. errors.Is(err, ErrInvalidArgument) для неё истинно.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return ErrInvalidArgument }

func invalid(msg string) error { return &InputError{Message: msg} }

// UnavailableError — внешний сервис недоступен; Message показывается
// пользователю. errors.Is(err, ErrUnavailable) для неё истинно.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

func unavailable(msg string) error { return &UnavailableError{Message: msg} }

// Сообщения валидации и недоступности, видимые пользователю.
const (
	msgInvalidPrompt    = "Please provide a valid prompt"
	msgEmptyPrompt      = "Prompt cannot be empty"
	msgUnavailable      = "Service temporarily unavailable. Please try again later."
	msgGatewayBusy      = "Service temporarily busy. Please try again in a moment."
	msgGenerateFailed   = "Unable to generate website. Please try again."
	msgEnhanceFailed    = "Failed to enhance prompt. Please try again."
	msgConversationFail = "Failed to process conversation"
	msgAvatarFailed     = "Failed to generate avatar. Please try again."
	msgAvatarPrompt     = "Please provide a description for your avatar"
	msgAvatarPromptLen  = "Prompt must be between 1 and 500 characters"
	msgMissingToken     = "Missing token"
	msgCaptchaOff       = "CAPTCHA not configured"
)

var (
	// ErrInvalidEmail — email не прошёл разбор.
	ErrInvalidEmail error = &InputError{Message: "invalid email"}
	// ErrEmptyPassword — пароль не передан.
	ErrEmptyPassword error = &InputError{Message: "password is required"}
	// ErrWeakPassword — пароль не соответствует политике сложности.
	ErrWeakPassword error = &InputError{Message: "password must be at least 8 characters and contain upper and lower case letters, a digit and a special character"}
)
