package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/choosek/tinybook/crypto"
	"github.com/choosek/tinybook/protocol"
	"github.com/choosek/tinybook/testutil"
)

func newTestRegistry(t *testing.T, store RegistryStore) *httptest.Server {
	t.Helper()

	registry, err := NewRegistry(&RegistryConfig{Store: store}, testutil.NewTestBookConfig())
	require.NoError(t, err)

	router := chi.NewRouter()
	registry.RegisterPublicRoutes(router)
	router.Route("/admin", registry.RegisterAdminRoutes)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func signedRegistration(t *testing.T, svcType ServiceType, endpoint string, nodeIndex int) (*protocol.Signed[RegisteredService], crypto.PrivateKey) {
	t.Helper()

	pubKey, privKey, err := testutil.GenerateTestKeyPair()
	require.NoError(t, err)

	signed, err := protocol.NewSigned(privKey, &RegisteredService{
		ServiceType:  svcType,
		HTTPEndpoint: endpoint,
		PublicKey:    pubKey.String(),
		NodeIndex:    nodeIndex,
	})
	require.NoError(t, err)
	return signed, privKey
}

func postRegistration(t *testing.T, url string, signed *protocol.Signed[RegisteredService]) *http.Response {
	t.Helper()

	body, err := json.Marshal(signed)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegistryRegisterAndList(t *testing.T) {
	srv := newTestRegistry(t, nil)

	for i := 0; i < 3; i++ {
		signed, _ := signedRegistration(t, NodeService, "http://node", i)
		resp := postRegistration(t, srv.URL+"/admin/register/node", signed)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	signed, _ := signedRegistration(t, OperatorService, "http://operator", 0)
	resp := postRegistration(t, srv.URL+"/admin/register/operator", signed)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, err := http.Get(srv.URL + "/services")
	require.NoError(t, err)
	defer listResp.Body.Close()

	var list ServiceListResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Len(t, list.Nodes, 3)
	require.Len(t, list.Operators, 1)
	require.Empty(t, list.Clients)

	// Signatures survive the round trip.
	for _, entry := range list.Nodes {
		svc, err := verifyRegistration(entry)
		require.NoError(t, err)
		require.Equal(t, NodeService, svc.ServiceType)
	}
}

func TestRegistryRejectsTamperedRegistration(t *testing.T) {
	srv := newTestRegistry(t, nil)

	signed, _ := signedRegistration(t, NodeService, "http://node", 0)
	signed.Object.HTTPEndpoint = "http://evil"

	resp := postRegistration(t, srv.URL+"/admin/register/node", signed)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRegistryRejectsTypeMismatch(t *testing.T) {
	srv := newTestRegistry(t, nil)

	signed, _ := signedRegistration(t, NodeService, "http://node", 0)
	resp := postRegistration(t, srv.URL+"/admin/register/operator", signed)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegistryRejectsNodeIndexOutOfRange(t *testing.T) {
	srv := newTestRegistry(t, nil)

	signed, _ := signedRegistration(t, NodeService, "http://node", 7)
	resp := postRegistration(t, srv.URL+"/admin/register/node", signed)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegistryServesConfig(t *testing.T) {
	srv := newTestRegistry(t, nil)

	config, err := FetchBookConfig(srv.URL)
	require.NoError(t, err)
	require.Equal(t, 16, config.PriceDomain)
	require.Equal(t, 3, config.NumNodes)
	require.Equal(t, 4, config.BatchSize)
}

func TestRegistryPersistsToStore(t *testing.T) {
	store := NewInMemoryStore()
	srv := newTestRegistry(t, store)

	signed, _ := signedRegistration(t, NodeService, "http://node", 1)
	resp := postRegistration(t, srv.URL+"/admin/register/node", signed)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	persisted, err := store.LoadAllServices()
	require.NoError(t, err)
	require.Len(t, persisted[NodeService], 1)

	// A fresh registry picks up the persisted registration.
	registry, err := NewRegistry(&RegistryConfig{Store: store}, testutil.NewTestBookConfig())
	require.NoError(t, err)
	require.Len(t, registry.collectServices(NodeService), 1)
}

func TestRegistryUnregister(t *testing.T) {
	store := NewInMemoryStore()
	srv := newTestRegistry(t, store)

	signed, _ := signedRegistration(t, NodeService, "http://node", 0)
	resp := postRegistration(t, srv.URL+"/admin/register/node", signed)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete,
		srv.URL+"/admin/unregister/"+signed.Object.PublicKey, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	listResp, err := http.Get(srv.URL + "/services")
	require.NoError(t, err)
	defer listResp.Body.Close()

	var list ServiceListResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Empty(t, list.Nodes)

	persisted, err := store.LoadAllServices()
	require.NoError(t, err)
	require.Empty(t, persisted[NodeService])
}
