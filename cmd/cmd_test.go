package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/config"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/products/P1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"product": map[string]any{
				"_id":   "P1",
				"title": "Shirt",
				"price": "25000",
				"stock": 10,
				"sizes": []map[string]any{{"size": "M", "stock": 3}},
			},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &config.Config{
		Application: config.Application{Env: "test", SessionID: "local"},
		Api:         config.Api{BaseURL: server.URL},
		Storage:     config.Storage{Backend: "file", Path: t.TempDir()},
	}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	root := newRootCommand(&app{cfg: cfg, out: out})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCartCommands(t *testing.T) {
	cfg := newConfig(t)

	_, err := run(t, cfg, "cart", "add", "P1", "--size", "M", "--quantity", "2")
	require.NoError(t, err)

	out, err := run(t, cfg, "cart", "list")
	require.NoError(t, err)
	summary := struct {
		TotalItems int    `json:"totalItems"`
		TotalPrice string `json:"totalPrice"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.TotalItems)
	assert.Equal(t, "50000", summary.TotalPrice)

	_, err = run(t, cfg, "cart", "add", "P1", "--size", "M", "--quantity", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 left in stock")

	_, err = run(t, cfg, "cart", "update", "P1", "0", "--size", "M")
	require.NoError(t, err)
	out, err = run(t, cfg, "cart", "list")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 0, summary.TotalItems)
}

func TestCheckoutWithEmptyCartFails(t *testing.T) {
	cfg := newConfig(t)
	out, err := run(t, cfg, "checkout",
		"--full-name", "Bat Erdene",
		"--email", "bat@example.mn",
		"--phone", "99112233",
		"--address", "Peace Avenue 12",
		"--city", "Ulaanbaatar",
	)
	require.Error(t, err)
	assert.Contains(t, out, "Your cart is empty")
}

func TestAuthStatusStartsSignedOut(t *testing.T) {
	cfg := newConfig(t)
	_, err := run(t, cfg, "auth", "guest")
	require.NoError(t, err)

	out, err := run(t, cfg, "auth", "status")
	require.NoError(t, err)
	status := struct {
		Authenticated bool `json:"authenticated"`
		IsGuest       bool `json:"isGuest"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.False(t, status.Authenticated)
	assert.True(t, status.IsGuest)
}
