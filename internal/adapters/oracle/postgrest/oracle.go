package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tourify/internal/platform/httpclient"
	"tourify/internal/ports/permissions"
)

var (
	ErrNotConfigured = errors.New("postgrest oracle not configured")
	ErrUnauthorized  = errors.New("postgrest unauthorized")
	ErrUpstream      = errors.New("postgrest upstream error")
)

const rpcPath = "/rest/v1/rpc/has_entity_permission"

// Config del backend hospedado. APIKey es la service key: va como apikey y como bearer.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	Transport http.RoundTripper
}

// Oracle llama la función RPC por HTTP. No reintenta: un error es un "no" para el resolver.
type Oracle struct {
	http *httpclient.Client
}

type rpcRequest struct {
	UserID     string `json:"p_user_id"`
	EntityType string `json:"p_entity_type"`
	EntityID   string `json:"p_entity_id"`
	Permission string `json:"p_permission"`
}

func NewOracle(cfg Config) (*Oracle, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) == "" || apiKey == "" {
		return nil, ErrNotConfigured
	}

	hc, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Headers: map[string]string{
			"apikey":        apiKey,
			"Authorization": "Bearer " + apiKey,
		},
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, err
	}
	return &Oracle{http: hc}, nil
}

func (o *Oracle) HasPermission(ctx context.Context, in permissions.Check) (bool, error) {
	var allowed *bool
	err := o.http.DoJSON(ctx, http.MethodPost, rpcPath, nil, rpcRequest{
		UserID:     in.UserID,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Permission: in.Permission,
	}, &allowed)
	if err != nil {
		switch httpclient.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return false, ErrUnauthorized
		default:
			return false, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}

	// null / body vacío => no concedido
	return allowed != nil && *allowed, nil
}
