package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portalxml/portal-api/internal/config"
	"github.com/portalxml/portal-api/internal/portal"
	"github.com/portalxml/portal-api/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// backendFake answers the upstream endpoints the creation flows hit
func backendFake(t *testing.T, conectados []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/clientes-conectados", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(conectados)
	})
	mux.HandleFunc("POST /lotes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":        "l1",
			"criado_em": time.Now(),
			"status":    "pendente",
			"itens":     []map[string]string{{"cliente_id": "c1", "cliente_nome": "Empresa Um"}},
		})
	})
	mux.HandleFunc("POST /auth/solicitacoes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "s1", "cliente_id": "c1", "status": "pendente"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestContainer(t *testing.T, backendURL string) *services.Container {
	t.Helper()
	logger := quietLogger()
	client := portal.NewClient(config.BackendConfig{BaseURL: backendURL, Timeout: 2 * time.Second}, portal.NewTokenStore(), logger)
	cache := services.NewCacheService(nil, 2*time.Second, logger)
	return &services.Container{
		Portal:     client,
		Cache:      cache,
		Conectados: services.NewConectadosCache(client, cache, logger),
	}
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCriarLoteRejectsInvalidDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend := backendFake(t, []string{"c1"})
	container := newTestContainer(t, backend.URL)

	router := gin.New()
	router.POST("/lotes", NewLotesHandler(container, quietLogger()).CriarLote)

	rec := postJSON(router, "/lotes", `{"data_inicio":"2025-06-01","data_fim":"2025-01-01","cliente_ids":["c1"]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "data_fim")
}

func TestCriarLoteRejectsTooManyClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend := backendFake(t, nil)
	container := newTestContainer(t, backend.URL)

	router := gin.New()
	router.POST("/lotes", NewLotesHandler(container, quietLogger()).CriarLote)

	ids := make([]string, 51)
	for i := range ids {
		ids[i] = `"c"`
	}
	body := `{"data_inicio":"2025-01-01","data_fim":"2025-01-31","cliente_ids":[` + strings.Join(ids, ",") + `]}`
	rec := postJSON(router, "/lotes", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "cliente_ids")
}

func TestCriarLoteRejectsOfflineMembers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend := backendFake(t, []string{"c1"})
	container := newTestContainer(t, backend.URL)

	router := gin.New()
	router.POST("/lotes", NewLotesHandler(container, quietLogger()).CriarLote)

	rec := postJSON(router, "/lotes", `{"data_inicio":"2025-01-01","data_fim":"2025-01-31","cliente_ids":["c1","c2"]}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Offline []string `json:"offline"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"c2"}, resp.Offline)
}

func TestCriarLoteForwardsWhenAllOnline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend := backendFake(t, []string{"c1", "c2"})
	container := newTestContainer(t, backend.URL)

	router := gin.New()
	router.POST("/lotes", NewLotesHandler(container, quietLogger()).CriarLote)

	rec := postJSON(router, "/lotes", `{"data_inicio":"2025-01-01","data_fim":"2025-01-31","cliente_ids":["c1","c2"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var lote struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lote))
	assert.Equal(t, "l1", lote.ID)
}

func TestCriarSolicitacaoRejectsOfflineClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend := backendFake(t, []string{"outro"})
	container := newTestContainer(t, backend.URL)

	router := gin.New()
	router.POST("/solicitacoes", NewSolicitacoesHandler(container, quietLogger()).CriarSolicitacao)

	rec := postJSON(router, "/solicitacoes", `{"cliente_id":"c1","data_inicio":"2025-01-01","data_fim":"2025-01-31"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CLIENTE_OFFLINE", resp.Code)
}

func TestCriarSolicitacaoForwardsWhenOnline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend := backendFake(t, []string{"c1"})
	container := newTestContainer(t, backend.URL)

	router := gin.New()
	router.POST("/solicitacoes", NewSolicitacoesHandler(container, quietLogger()).CriarSolicitacao)

	rec := postJSON(router, "/solicitacoes", `{"cliente_id":"c1","data_inicio":"2025-01-01","data_fim":"2025-01-31"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}
