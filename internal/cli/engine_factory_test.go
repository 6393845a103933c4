package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/synthex/internal/config"
	"github.com/aretw0/synthex/internal/logging"
	"github.com/aretw0/synthex/internal/testutils"
	"github.com/aretw0/synthex/pkg/adapters/redis"
	"github.com/aretw0/synthex/pkg/domain"
)

func TestNewApp_Memory(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"actions":["STIR for 1 h"]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Service.BaseURL = srv.URL
	cfg.Service.APIKey = "configured"

	app, err := NewApp(cfg, logging.NewNop(), AppOptions{})
	require.NoError(t, err)
	defer app.Close()

	outcome := app.Engine.Submit(context.Background(), "stir", "")
	assert.Equal(t, domain.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "configured", gotAuth)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "synthex_extract_requests_total")
}

func TestNewApp_InstrumentedStore(t *testing.T) {
	app, err := NewApp(config.Default(), logging.NewNop(), AppOptions{Extractor: testutils.NewStubExtractor()})
	require.NoError(t, err)

	_, err = app.Sessions.LoadOrStart(context.Background(), "s1")
	require.NoError(t, err)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "synthex_session_store_duration_seconds" {
			found = true
			assert.NotEmpty(t, f.GetMetric())
		}
	}
	assert.True(t, found, "store metrics should be registered and observed")
}

func TestNewApp_CredentialOverride(t *testing.T) {
	stub := testutils.NewStubExtractor()
	cfg := config.Default()
	cfg.Service.APIKey = "configured"

	app, err := NewApp(cfg, logging.NewNop(), AppOptions{Credential: "prompted", Extractor: stub})
	require.NoError(t, err)

	app.Engine.Submit(context.Background(), "x", "")
	require.Equal(t, 1, stub.Calls())
	assert.Equal(t, domain.Credential("prompted"), stub.Requests()[0].Credential)
	assert.Nil(t, app.Client)
}

func TestNewApp_Redis(t *testing.T) {
	_, client := testutils.SetupRedis(t)

	cfg := config.Default()
	cfg.Store.Driver = config.StoreRedis

	app, err := NewApp(cfg, logging.NewNop(), AppOptions{
		Extractor: testutils.NewStubExtractor(),
		Redis:     redis.NewFromClient(client),
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = app.Sessions.LoadOrStart(ctx, "s1")
	require.NoError(t, err)

	ids, err := app.Sessions.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.StoreRedis
	cfg.Store.Redis.Addr = "127.0.0.1:1"

	_, err := NewApp(cfg, logging.NewNop(), AppOptions{Extractor: testutils.NewStubExtractor()})
	assert.ErrorContains(t, err, "redis unavailable")
}

func TestNewApp_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "etcd"

	_, err := NewApp(cfg, logging.NewNop(), AppOptions{Extractor: testutils.NewStubExtractor()})
	assert.Error(t, err)
}

func TestApp_ExitClosesFirst(t *testing.T) {
	var order []string
	prev := exit
	exit = func(code int) { order = append(order, "exit") }
	defer func() { exit = prev }()

	app := &App{
		Logger:  logging.NewNop(),
		closers: []func() error{func() error { order = append(order, "close"); return nil }},
	}
	app.Exit(1)

	assert.Equal(t, []string{"close", "exit"}, order)
}

func TestApp_ExitClosesRedis(t *testing.T) {
	mr, _ := testutils.SetupRedis(t)

	cfg := config.Default()
	cfg.Store.Driver = config.StoreRedis
	cfg.Store.Redis.Addr = mr.Addr()

	app, err := NewApp(cfg, logging.NewNop(), AppOptions{})
	require.NoError(t, err)

	var code int
	prev := exit
	exit = func(c int) { code = c }
	defer func() { exit = prev }()

	app.Exit(1)
	assert.Equal(t, 1, code)
	assert.Error(t, app.Close(), "client should already be closed")
}
