package plugin

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestExecutor_Execute(t *testing.T) {
	skipOnWindows(t)

	plugin := writePlugin(t, t.TempDir(), "hello", `#!/bin/sh
cat > /dev/null
echo '{"success":true,"data":{"message":"hello world"}}'
`, "type")

	executor := NewExecutor(5 * time.Second)
	response, err := executor.Execute(context.Background(), plugin, &Request{Action: "type", Letter: "A"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}

	var data map[string]any
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("expected message 'hello world', got %v", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	skipOnWindows(t)

	plugin := writePlugin(t, t.TempDir(), "echo", `#!/bin/sh
INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`, "type")

	request := &Request{
		Action:     "type",
		Letter:     "J",
		Confidence: 0.9,
		Config:     json.RawMessage(`{"setting":"enabled"}`),
	}

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, request)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data.Received.Action != "type" {
		t.Errorf("expected action 'type', got %q", data.Received.Action)
	}
	if data.Received.Letter != "J" {
		t.Errorf("expected letter 'J', got %q", data.Received.Letter)
	}
	if data.Received.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", data.Received.Confidence)
	}
	if string(data.Received.Config) != `{"setting":"enabled"}` {
		t.Errorf("config not forwarded: %s", data.Received.Config)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	skipOnWindows(t)

	plugin := writePlugin(t, t.TempDir(), "slow", `#!/bin/sh
sleep 10
echo '{"success":true}'
`, "slow")

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, &Request{Action: "slow"})
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout error, got: %v", err)
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name   string
		script string
	}{
		{"invalid json", "#!/bin/sh\necho 'not valid json'\n"},
		{"non-zero exit", "#!/bin/sh\necho 'Error: something failed' >&2\nexit 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := writePlugin(t, t.TempDir(), "bad", tt.script, "bad")
			if _, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "bad"}); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	skipOnWindows(t)

	plugin := writePlugin(t, t.TempDir(), "failing", `#!/bin/sh
echo '{"success":false,"error":"something went wrong"}'
`, "fail")

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "fail"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if response.Success {
		t.Errorf("expected success=false, got true")
	}
	if response.Error != "something went wrong" {
		t.Errorf("expected error 'something went wrong', got %q", response.Error)
	}
}

func TestNewExecutor(t *testing.T) {
	if got := NewExecutor(3 * time.Second).Timeout(); got != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", got)
	}
	if got := NewExecutor(0).Timeout(); got != DefaultTimeout {
		t.Errorf("Timeout() = %v, want default %v", got, DefaultTimeout)
	}
}
