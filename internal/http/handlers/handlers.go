// handlers — REST-обработчики публичного API. Обработчик разбирает
// запрос, вызывает service и переводит результат в JSON; ошибки
// сервиса отображаются в HTTP через internal/errors.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/go-site-generator/internal/errors"
	"github.com/pribylovaa/go-site-generator/internal/http/middleware"
	"github.com/pribylovaa/go-site-generator/internal/service"
)

// maxBodyBytes — предел тела JSON-запроса. HTML проекта укладывается
// в projects.max_html_bytes, который меньше.
const maxBodyBytes = 4 << 20

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc        *service.Service
	trustProxy bool
}

// New создаёт обработчики. trustProxy — учитывать ли X-Forwarded-For
// при определении адреса клиента.
func New(svc *service.Service, trustProxy bool) *Handlers {
	return &Handlers{svc: svc, trustProxy: trustProxy}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: неизвестные поля и мусор после
// объекта запрещены.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: trailing data")
	}

	return nil
}

// errInvalidBody — тело запроса не разобрано.
var errInvalidBody error = &service.InputError{Message: "invalid request body"}

// currentUser возвращает id аутентифицированного вызывающего или пишет
// 401. Маршруты, где он вызывается, стоят за RequireAuth.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthenticated)
		return uuid.Nil, false
	}

	return p.UserID, true
}

// pathUUID разбирает параметр пути; неверный id неотличим от отсутствующего.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, service.ErrNotFound
	}

	return id, nil
}
