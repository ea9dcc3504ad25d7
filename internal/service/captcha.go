package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
)

const msgVerifyFailed = "Verification failed"

// VerifyCaptcha проверяет токен CAPTCHA у провайдера.
// (false, nil) — токен отклонён провайдером.
func (s *Service) VerifyCaptcha(ctx context.Context, token, remoteIP string) (bool, error) {
	const op = "service/captcha/VerifyCaptcha"

	token = strings.TrimSpace(token)
	if token == "" {
		return false, fmt.Errorf("%s: %w", op, invalid(msgMissingToken))
	}

	if !s.captcha.Configured() {
		log.From(ctx).Error("captcha_not_configured", "op", op)
		return false, fmt.Errorf("%s: %w", op, unavailable(msgCaptchaOff))
	}

	ok, err := s.captcha.Verify(ctx, token, remoteIP)
	if err != nil {
		if cerr := ctxErr(ctx); cerr != nil {
			return false, fmt.Errorf("%s: %w", op, cerr)
		}

		log.From(ctx).Error("captcha_verify_failed", "op", op, "err", err.Error())

		return false, fmt.Errorf("%s: %w", op, unavailable(msgVerifyFailed))
	}

	if !ok {
		log.From(ctx).Info("captcha_rejected", "op", op)
	}

	return ok, nil
}
