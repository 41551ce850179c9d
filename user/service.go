package user

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

type Service struct {
	client   *inHttp.Client
	session  *Session
	validate *validator.Validate
}

func NewService(client *inHttp.Client, session *Session) *Service {
	return &Service{
		client:   client,
		session:  session,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// post validates body, sends it to path and stores the returned token when
// the backend hands one out.
func (s *Service) post(c context.Context, tag string, path string, body any) (AuthResponse, error) {
	c, span := otel.Tracer.Start(c, tag)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, tag).
		RawJSON(log.KeyRequestBody, masked(body)).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating request").Logger()
	logger.Trace().Msg("validating request")
	if err := s.validate.StructCtx(c, body); err != nil {
		err = fmt.Errorf("failed validating request with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return AuthResponse{}, err
	}
	logger.Trace().Msg("validated request")

	logger = logger.With().Str(log.KeyProcess, "calling backend").Logger()
	logger.Info().Msg("calling backend")
	resp := AuthResponse{}
	err := s.client.Do(c, inHttp.Request{Method: http.MethodPost, Path: path, Body: body}, &resp)
	if err != nil {
		err = fmt.Errorf("failed calling %s with error=%w", path, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return AuthResponse{}, err
	}
	logger.Info().Msg("called backend")

	if resp.Token == "" || resp.User == nil {
		return resp, nil
	}

	logger = logger.With().
		Str(log.KeyProcess, "storing session").
		Str(log.KeyUserID, resp.User.ID).
		Logger()
	logger.Info().Msg("storing session")
	if err := s.session.SignIn(c, *resp.User, resp.Token); err != nil {
		err = fmt.Errorf("failed storing session with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return AuthResponse{}, err
	}
	logger.Info().Msg("stored session")

	return resp, nil
}

func (s *Service) SignIn(c context.Context, req SignIn) (AuthResponse, error) {
	return s.post(c, "UserService SignIn", "/auth/signin", req)
}

func (s *Service) SignUp(c context.Context, req SignUp) (AuthResponse, error) {
	return s.post(c, "UserService SignUp", "/auth/signup", req)
}

func (s *Service) VerifyEmail(c context.Context, req VerifyEmail) (AuthResponse, error) {
	return s.post(c, "UserService VerifyEmail", "/auth/verify-email", req)
}

func (s *Service) ForgotPassword(c context.Context, req ForgotPassword) (AuthResponse, error) {
	return s.post(c, "UserService ForgotPassword", "/auth/forgot-password", req)
}

func (s *Service) VerifyResetCode(c context.Context, req VerifyResetCode) (AuthResponse, error) {
	return s.post(c, "UserService VerifyResetCode", "/auth/verify-reset-code", req)
}

func (s *Service) ResetPassword(c context.Context, req ResetPassword) (AuthResponse, error) {
	return s.post(c, "UserService ResetPassword", "/auth/reset-password", req)
}

func (s *Service) ContinueAsGuest(c context.Context) error {
	return s.session.ContinueAsGuest(c)
}

func (s *Service) SignOut(c context.Context) error {
	return s.session.SignOut(c)
}
