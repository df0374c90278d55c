package crossmind

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/parse" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("unexpected body: %v", err)
		}
		if req["message"] == "" {
			t.Fatal("expected message in request body")
		}
		_ = json.NewEncoder(w).Encode(Intent{
			Status:     "success",
			Action:     "bridge",
			FromChain:  "sepolia",
			Confidence: 0.85,
			Engine:     "symbolic",
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	intent, err := client.ParseIntent(context.Background(), "Bridge 100 USDC from Ethereum to Polygon")
	if err != nil {
		t.Fatalf("parse intent: %v", err)
	}
	if intent.Action != "bridge" || intent.FromChain != "sepolia" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
}

func TestValidateIntentUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/validate" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   Validation{Valid: false, Reason: "缺少或无效的动作"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.ValidateIntent(context.Background(), Intent{Status: "success"})
	if err != nil {
		t.Fatalf("validate intent: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid intent")
	}
	if result.Reason == "" {
		t.Fatal("expected a rejection reason")
	}
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "error",
			"error":  "行情服务未配置",
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.TokenPrice(context.Background(), "ETH")
	if err == nil {
		t.Fatal("expected error from server")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status code: %d", apiErr.StatusCode)
	}
	if apiErr.Message != "行情服务未配置" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestCheckEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/relayer/check-events" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": PollResult{
				CurrentBlock: 5000,
				FromBlock:    4900,
				EventsFound:  1,
				NewBridges:   1,
				Completed:    1,
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.CheckEvents(context.Background())
	if err != nil {
		t.Fatalf("check events: %v", err)
	}
	if result.Completed != 1 || result.FromBlock != 4900 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
