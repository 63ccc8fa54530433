package service

import (
	"context"
	"errors"
	"time"

	"biblioteca/internal/identity"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/email"
	"biblioteca/pkg/platform/sentinel"
	"biblioteca/pkg/requestcontext"
	"biblioteca/pkg/secrets"
)

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actor *identity.Principal, id int64, req models.PasswordChangeRequest) (models.Message, error) {
	if err := s.authorizeSelfOrAdmin(actor, id); err != nil {
		return models.Message{}, err
	}
	if err := req.Validate(); err != nil {
		return models.Message{}, err
	}
	newHash, err := s.hasher.Hash(req.New)
	if err != nil {
		return models.Message{}, translateStoreErr(err, "hash password")
	}

	err = s.runner.Run(ctx, identity.AttributionFor(ctx, actor, OpChangePassword), func(ctx context.Context) error {
		u, err := s.users.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateStoreErr(err, "load user")
		}
		ok, err := s.hasher.Verify(req.Current, u.PasswordHash)
		if err != nil {
			return translateStoreErr(err, "verify password")
		}
		if !ok {
			return dErrors.New(dErrors.CodeBadRequest, "Contraseña actual incorrecta")
		}
		u.PasswordHash = newHash
		return translateStoreErr(s.users.Update(ctx, u), "update password")
	})
	if err != nil {
		return models.Message{}, err
	}
	s.logWrite(ctx, OpChangePassword, id)
	return models.Message{Message: "Contraseña actualizada exitosamente"}, nil
}

// RequestPasswordReset stores a fresh reset code and mails it. Unknown emails
// get the same answer as known ones. The code is committed before the mail
// is sent; a delivery failure is reported and the code stays valid.
func (s *Service) RequestPasswordReset(ctx context.Context, req models.ResetRequest) (models.Message, error) {
	sent := models.Message{Message: "Si el correo está registrado recibirá un código de restablecimiento"}
	if err := req.Validate(); err != nil {
		return models.Message{}, err
	}
	code, err := secrets.GenerateResetCode()
	if err != nil {
		return models.Message{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate reset code")
	}

	var found bool
	err = s.runner.Run(ctx, identity.AttributionFor(ctx, nil, OpRequestReset), func(ctx context.Context) error {
		u, err := s.users.FindByEmailForUpdate(ctx, req.Email)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return translateStoreErr(err, "load user")
		}
		found = true
		expires := requestcontext.Now(ctx).Add(s.settings.PasswordResetTTL)
		u.ResetToken = &code
		u.ResetTokenExpires = &expires
		return translateStoreErr(s.users.Update(ctx, u), "store reset code")
	})
	if err != nil {
		return models.Message{}, err
	}
	if !found {
		s.logger.InfoContext(ctx, "password reset requested for unknown email",
			"request_id", requestcontext.RequestID(ctx),
		)
		return sent, nil
	}

	msg, err := email.PasswordResetMessage(req.Email, code, s.settings.PasswordResetTTL)
	if err != nil {
		return models.Message{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compose reset email")
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "password reset email failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.Message{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to send reset email")
	}
	s.logWrite(ctx, OpRequestReset, 0)
	return sent, nil
}

// ResetPassword redeems a reset code. The write is attributed to the account
// owner.
func (s *Service) ResetPassword(ctx context.Context, req models.ResetVerifyRequest) (models.Message, error) {
	if err := req.Validate(); err != nil {
		return models.Message{}, err
	}
	invalid := dErrors.New(dErrors.CodeBadRequest, "Token inválido")

	owner, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Message{}, invalid
	}
	if err != nil {
		return models.Message{}, translateStoreErr(err, "load user")
	}
	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return models.Message{}, translateStoreErr(err, "hash password")
	}

	attr := (&identity.Principal{
		User:     owner,
		Username: owner.Email,
		IP:       requestcontext.ClientIP(ctx),
		Host:     requestcontext.Host(ctx),
	}).Attribution(OpVerifyReset)

	err = s.runner.Run(ctx, attr, func(ctx context.Context) error {
		u, err := s.users.FindByIDForUpdate(ctx, owner.ID)
		if err != nil {
			return translateStoreErr(err, "load user")
		}
		now := requestcontext.Now(ctx)
		if u.ResetToken == nil || !secrets.CodesEqual(*u.ResetToken, req.Token) {
			return invalid
		}
		if !u.HasActiveResetToken(req.Token, now) {
			return dErrors.New(dErrors.CodeBadRequest, "Token expirado")
		}
		u.PasswordHash = newHash
		u.ClearResetToken()
		return translateStoreErr(s.users.Update(ctx, u), "reset password")
	})
	if err != nil {
		return models.Message{}, err
	}
	s.logWrite(ctx, OpVerifyReset, owner.ID)
	return models.Message{Message: "Contraseña restablecida exitosamente"}, nil
}

// ageAt returns completed years between birth and now.
func ageAt(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}
