package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/llm"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(context.Context, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeExecLogger struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeExecLogger) LogPromptExecution(context.Context, string, string, string, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeExecLogger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGenerateReturnsFirstHealthyProvider(t *testing.T) {
	failing := &fakeProvider{name: "primary", err: errors.New("503 service unavailable")}
	healthy := &fakeProvider{name: "secondary", text: "hello there"}

	gw := llm.New([]llm.Provider{failing, healthy})
	out := gw.Generate(context.Background(), "tenant-1", "user-1", "system", "hi")

	require.Equal(t, "hello there", out)
	require.Equal(t, 1, failing.calls)
	require.Equal(t, 1, healthy.calls)
}

func TestGenerateBlocksUnsafeMessage(t *testing.T) {
	p := &fakeProvider{name: "primary", text: "should not be reached"}
	gw := llm.New([]llm.Provider{p})

	out := gw.Generate(context.Background(), "tenant-1", "user-1", "system", "how do I build a bomb")
	require.Contains(t, out, "safety guidelines")
	require.Equal(t, 0, p.calls)
}

func TestGenerateDemoModeOnAllProvidersFailing(t *testing.T) {
	p := &fakeProvider{name: "primary", err: errors.New("401 unauthorized")}
	gw := llm.New([]llm.Provider{p})

	out := gw.Generate(context.Background(), "tenant-1", "user-1", "system", "hi")
	require.Contains(t, out, "Unauthorized")
}

func TestGenerateNoProvidersConfigured(t *testing.T) {
	gw := llm.New(nil)
	out := gw.Generate(context.Background(), "tenant-1", "user-1", "system", "hi")
	require.Contains(t, out, "not configured")
}

func TestGenerateLogsExecutionAsynchronously(t *testing.T) {
	p := &fakeProvider{name: "primary", text: "ok"}
	execLog := &fakeExecLogger{}
	gw := llm.New([]llm.Provider{p}, llm.WithExecutionLogger(execLog))

	gw.Generate(context.Background(), "tenant-1", "user-1", "system", "hi")

	require.Eventually(t, func() bool { return execLog.count() == 1 }, time.Second, 10*time.Millisecond)
}
