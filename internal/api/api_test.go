package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/api"
	"github.com/convoflow/workflow-engine/internal/arbitration"
	"github.com/convoflow/workflow-engine/internal/dispatch"
	"github.com/convoflow/workflow-engine/internal/engine/inmemengine"
	"github.com/convoflow/workflow-engine/internal/hooks"
	"github.com/convoflow/workflow-engine/internal/lock/inmemlock"
	"github.com/convoflow/workflow-engine/internal/nodeexec"
	storeinmem "github.com/convoflow/workflow-engine/internal/store/inmem"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

func newTestServer(t *testing.T) (*httptest.Server, *storeinmem.Store) {
	t.Helper()
	st := storeinmem.New()
	eng := inmemengine.New()

	reg := nodeexec.NewRegistry()
	reg.Register(workflow.NodeStart, nodeexec.StartExecutor{})
	reg.Register(workflow.NodeEnd, nodeexec.EndExecutor{})

	d := dispatch.New(dispatch.Dispatcher{
		Engine:     eng,
		Locker:     inmemlock.New(),
		Resolver:   &arbitration.Resolver{Executions: st.Executions(), Workflows: st.Workflows()},
		Registry:   reg,
		Tenants:    st.Tenants(),
		Workflows:  st.Workflows(),
		Executions: st.Executions(),
		Steps:      st.Steps(),
		Bus:        hooks.NewBus(),
	})
	require.NoError(t, d.RegisterWithEngine(context.Background()))

	server := api.New(api.Config{WhatsAppVerifyToken: "secret-token"}, d, st.Workflows(), st.Executions(), nil)
	return httptest.NewServer(server.Handler()), st
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndListWorkflows(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	body, _ := json.Marshal(map[string]any{
		"name":         "greet",
		"trigger_kind": workflow.TriggerKeyword,
		"nodes": []map[string]any{
			{"id": "n1", "kind": "start"},
			{"id": "n2", "kind": "end"},
		},
		"edges": []map[string]any{
			{"source": "n1", "target": "n2"},
		},
	})

	resp, err := http.Post(ts.URL+"/v1/tenants/tenant-1/workflows", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	listResp, err := http.Get(ts.URL + "/v1/tenants/tenant-1/workflows")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var out struct {
		Workflows []workflow.Workflow `json:"workflows"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&out))
	require.Len(t, out.Workflows, 1)
	require.Equal(t, "greet", out.Workflows[0].Name)
}

func TestTriggerWorkflowStartsExecution(t *testing.T) {
	ts, st := newTestServer(t)
	defer ts.Close()

	wf := &workflow.Workflow{
		TenantID:    "tenant-1",
		Name:        "onboarding",
		Active:      true,
		TriggerKind: workflow.TriggerManual,
		Nodes: []workflow.Node{
			{ID: "n1", Kind: workflow.NodeStart},
			{ID: "n2", Kind: workflow.NodeEnd},
		},
		Edges: []workflow.Edge{{Source: "n1", Target: "n2"}},
	}
	require.NoError(t, st.Workflows().Create(context.Background(), wf))

	resp, err := http.Post(ts.URL+"/v1/tenants/tenant-1/workflows/"+wf.ID+"/trigger", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out struct {
		ExecutionID string `json:"execution_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.ExecutionID)
}

func TestWhatsAppVerifyHandshake(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/webhooks/whatsapp/tenant-1?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=echo-me", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	require.Equal(t, "echo-me", string(buf[:n]))
}

func TestWhatsAppVerifyRejectsBadToken(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/webhooks/whatsapp/tenant-1?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=echo-me", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReceiveWebMessage(t *testing.T) {
	ts, st := newTestServer(t)
	defer ts.Close()
	st.SetSubscriptionStatus("tenant-1", "active")

	// An always-matching keyword workflow keeps this request on the
	// start path rather than falling through to the AI fallback chatbot,
	// which newTestServer leaves unconfigured (no llm.Gateway wired).
	wf := &workflow.Workflow{
		TenantID:    "tenant-1",
		Name:        "greet",
		Active:      true,
		TriggerKind: workflow.TriggerKeyword,
		Nodes: []workflow.Node{
			{ID: "n1", Kind: workflow.NodeStart},
			{ID: "n2", Kind: workflow.NodeEnd},
		},
		Edges: []workflow.Edge{{Source: "n1", Target: "n2"}},
	}
	require.NoError(t, st.Workflows().Create(context.Background(), wf))

	body, _ := json.Marshal(map[string]string{"user_id": "user-1", "body": "hello there"})
	resp, err := http.Post(ts.URL+"/webhooks/web/tenant-1", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}
