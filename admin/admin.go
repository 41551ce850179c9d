// Package admin manages the catalog on behalf of a signed-in administrator.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/catalog"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/storage"
)

type Service struct {
	client   *inHttp.Client
	storage  storage.Storage
	validate *validator.Validate

	mu    sync.Mutex
	token string
}

func NewService(c context.Context, client *inHttp.Client, s storage.Storage) (*Service, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "AdminService NewService").
		Str(log.KeyProcess, "loading admin token").
		Logger()

	svc := &Service{client: client, storage: s, validate: validator.New()}
	logger.Trace().Msg("loading admin token")
	found, err := storage.GetJSON(c, s, storage.KeyAdminToken, &svc.token)
	if err != nil && !found {
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("persisted admin token is corrupt, ignoring it")
		svc.token = ""
	}
	logger.Trace().Bool("hasToken", svc.token != "").Msg("loaded admin token")
	return svc, nil
}

func (s *Service) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken stores the admin token; an empty token signs the admin out.
func (s *Service) SetToken(c context.Context, token string) error {
	token = strings.TrimSpace(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		if err := s.storage.Delete(c, storage.KeyAdminToken); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed deleting admin token with error=%w", err)
		}
		s.token = ""
		return nil
	}
	if err := storage.SetJSON(c, s.storage, storage.KeyAdminToken, token); err != nil {
		return fmt.Errorf("failed persisting admin token with error=%w", err)
	}
	s.token = token
	return nil
}

func (s *Service) do(c context.Context, span trace.Span, logger zerolog.Logger, req inHttp.Request, out any) error {
	token := s.Token()
	if token == "" {
		err := inErrors.ErrEmptyAuth
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	req.Token = token
	if err := s.client.Do(c, req, out); err != nil {
		err = fmt.Errorf("failed %s %s with error=%w", req.Method, req.Path, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}

func (s *Service) CreateCategory(c context.Context, form CategoryForm, image inHttp.File) (catalog.Category, error) {
	c, span := otel.Tracer.Start(c, "AdminService CreateCategory")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "AdminService CreateCategory").
		Str("name", form.Name).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating category").Logger()
	logger.Trace().Msg("validating category")
	if err := s.validate.Struct(form); err != nil {
		err = fmt.Errorf("failed validating category with error=%w: %w", inErrors.ErrInvalidForm, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return catalog.Category{}, err
	}
	logger.Trace().Msg("validated category")

	logger = logger.With().Str(log.KeyProcess, "creating category").Logger()
	logger.Info().Msg("creating category")
	files := []inHttp.File{}
	if image.Reader != nil {
		image.Field = "image"
		files = append(files, image)
	}
	raw := json.RawMessage{}
	err := s.do(c, span, logger, inHttp.Request{
		Method:    http.MethodPost,
		Path:      "/categories",
		Multipart: &inHttp.Multipart{Fields: map[string]string{"name": form.Name}, Files: files},
	}, &raw)
	if err != nil {
		return catalog.Category{}, err
	}
	category := catalog.Category{}
	if len(raw) > 0 {
		if err := catalog.DecodeEnveloped(raw, &category, "category", "data"); err != nil {
			err = fmt.Errorf("failed decoding category with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return catalog.Category{}, err
		}
	}
	logger.Info().Str("categoryId", category.ID).Msg("created category")

	return category, nil
}

func (s *Service) DeleteCategory(c context.Context, id string) error {
	c, span := otel.Tracer.Start(
		c,
		"AdminService DeleteCategory",
		trace.WithAttributes(attribute.String("categoryId", id)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "AdminService DeleteCategory").
		Str(log.KeyProcess, "deleting category").
		Str("categoryId", id).
		Logger()

	logger.Info().Msg("deleting category")
	err := s.do(c, span, logger, inHttp.Request{
		Method: http.MethodDelete,
		Path:   "/categories/" + url.PathEscape(id),
	}, nil)
	if err != nil {
		return err
	}
	logger.Info().Msg("deleted category")
	return nil
}

func (s *Service) CreateProduct(c context.Context, form ProductForm, images []inHttp.File) (catalog.Product, error) {
	c, span := otel.Tracer.Start(c, "AdminService CreateProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "AdminService CreateProduct").
		Object("product", form).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating product").Logger()
	logger.Trace().Msg("validating product")
	err := s.validate.Struct(form)
	if err == nil {
		err = form.check()
	}
	if err != nil {
		err = fmt.Errorf("failed validating product with error=%w: %w", inErrors.ErrInvalidForm, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return catalog.Product{}, err
	}
	fields, err := form.fields()
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return catalog.Product{}, err
	}
	logger.Trace().Msg("validated product")

	logger = logger.With().Str(log.KeyProcess, "creating product").Logger()
	logger.Info().Int("images", len(images)).Msg("creating product")
	files := make([]inHttp.File, 0, len(images))
	for _, image := range images {
		image.Field = "images"
		files = append(files, image)
	}
	raw := json.RawMessage{}
	err = s.do(c, span, logger, inHttp.Request{
		Method:    http.MethodPost,
		Path:      "/products",
		Multipart: &inHttp.Multipart{Fields: fields, Files: files},
	}, &raw)
	if err != nil {
		return catalog.Product{}, err
	}
	product := catalog.Product{}
	if len(raw) > 0 {
		if err := catalog.DecodeEnveloped(raw, &product, "product", "data"); err != nil {
			err = fmt.Errorf("failed decoding product with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return catalog.Product{}, err
		}
	}
	logger.Info().Str(log.KeyProductID, product.ID).Msg("created product")

	return product, nil
}

func (s *Service) DeleteProduct(c context.Context, id string) error {
	c, span := otel.Tracer.Start(
		c,
		"AdminService DeleteProduct",
		trace.WithAttributes(attribute.String(log.KeyProductID, id)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "AdminService DeleteProduct").
		Str(log.KeyProcess, "deleting product").
		Str(log.KeyProductID, id).
		Logger()

	logger.Info().Msg("deleting product")
	err := s.do(c, span, logger, inHttp.Request{
		Method: http.MethodDelete,
		Path:   "/products/" + url.PathEscape(id),
	}, nil)
	if err != nil {
		return err
	}
	logger.Info().Msg("deleted product")
	return nil
}
