// ratelimit ограничивает частоту дорогих операций (генерация, ассистент)
// по идентичности вызывающего: id пользователя или адрес клиента.
//
// Алгоритм — фиксированное окно: первая попытка открывает окно длиной
// Window, в нём допускается не более Limit попыток, отклонённые попытки
// счётчик не увеличивают. На границе окна возможно до 2×Limit допусков
// подряд: это известное ограничение фиксированного окна.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute
)

// ErrLimitExceeded — попытка отклонена ограничителем.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Limiter — контракт ограничителя. Admit никогда не возвращает ошибок:
// true означает, что попытка допущена и учтена.
type Limiter interface {
	Admit(ctx context.Context, identity string) bool
	Rule() Rule
}

// Rule — параметры окна.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Normalize подставляет значения по умолчанию вместо непригодных.
func (r Rule) Normalize() Rule {
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}

	if r.Window <= 0 {
		r.Window = DefaultWindow
	}

	return r
}
