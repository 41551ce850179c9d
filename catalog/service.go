package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

type ProductFilter struct {
	Category string
	Search   string
}

type Service struct {
	client *inHttp.Client
}

func NewService(client *inHttp.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Categories(c context.Context) ([]Category, error) {
	c, span := otel.Tracer.Start(c, "CatalogService Categories")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CatalogService Categories").
		Str(log.KeyProcess, "fetching categories").
		Logger()

	logger.Info().Msg("fetching categories")
	body := struct {
		Categories []Category `json:"getAllCategories"`
	}{}
	err := s.client.Do(c, inHttp.Request{Method: http.MethodGet, Path: "/categories"}, &body)
	if err != nil {
		err = fmt.Errorf("failed fetching categories with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int("count", len(body.Categories)).Msg("fetched categories")

	return body.Categories, nil
}

// CategoryNames maps category ids to names. It is a background lookup:
// failures are logged and yield an empty map.
func (s *Service) CategoryNames(c context.Context) map[string]string {
	names := map[string]string{}
	categories, err := s.Categories(c)
	if err != nil {
		zerolog.Ctx(c).Warn().
			Err(err).
			Str(log.KeyTag, "CatalogService CategoryNames").
			Msg("category lookup failed, using empty list")
		return names
	}
	for _, category := range categories {
		names[category.ID] = category.Name
	}
	return names
}

func (s *Service) Products(c context.Context, filter ProductFilter) ([]Product, error) {
	c, span := otel.Tracer.Start(c, "CatalogService Products")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CatalogService Products").
		Str(log.KeyProcess, "fetching products").
		Str(log.KeyCategoryID, filter.Category).
		Logger()

	query := url.Values{}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}

	logger.Info().Msg("fetching products")
	raw := json.RawMessage{}
	err := s.client.Do(c, inHttp.Request{Method: http.MethodGet, Path: "/products", Query: query}, &raw)
	if err != nil {
		err = fmt.Errorf("failed fetching products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	products := []Product{}
	if err := DecodeEnveloped(raw, &products, "products", "getAllProducts", "data"); err != nil {
		err = fmt.Errorf("failed decoding products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int("count", len(products)).Msg("fetched products")

	return products, nil
}

func (s *Service) Product(c context.Context, id string) (Product, error) {
	c, span := otel.Tracer.Start(c, "CatalogService Product")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CatalogService Product").
		Str(log.KeyProcess, "fetching product").
		Str(log.KeyProductID, id).
		Logger()

	logger.Info().Msg("fetching product")
	raw := json.RawMessage{}
	err := s.client.Do(
		c,
		inHttp.Request{Method: http.MethodGet, Path: "/products/" + url.PathEscape(id)},
		&raw,
	)
	if err != nil {
		err = fmt.Errorf("failed fetching productId=%s with error=%w", id, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Product{}, err
	}

	product := Product{}
	if err := DecodeEnveloped(raw, &product, "product", "getProduct", "data"); err != nil {
		err = fmt.Errorf("failed decoding productId=%s with error=%w", id, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Product{}, err
	}
	logger.Info().Msg("fetched product")

	return product, nil
}

// DecodeEnveloped decodes raw into out, unwrapping the first of keys found
// when the backend wraps the payload in an object.
func DecodeEnveloped(raw json.RawMessage, out any, keys ...string) error {
	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		for _, key := range keys {
			if inner, ok := envelope[key]; ok {
				return json.Unmarshal(inner, out)
			}
		}
	}
	return json.Unmarshal(raw, out)
}
