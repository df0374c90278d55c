package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gethcore "github.com/ethereum/go-ethereum"
	coretypes "github.com/ethereum/go-ethereum/core/types"

	"crossmind/internal/parser"
	"crossmind/internal/reasoning"
	"crossmind/internal/relayer"
)

type fakeReader struct {
	block uint64
	logs  []coretypes.Log
}

func (f *fakeReader) BlockNumber(ctx context.Context) (uint64, error) {
	return f.block, nil
}

func (f *fakeReader) FilterLogs(ctx context.Context, query gethcore.FilterQuery) ([]coretypes.Log, error) {
	return f.logs, nil
}

func newTestServer() *Server {
	hybrid := parser.NewHybrid(reasoning.NewReasoner(), nil)
	poller := relayer.NewPoller(&fakeReader{block: 5000}, relayer.NewStore(), relayer.SimulatedCompleter{}, nil, relayer.Config{})
	return NewServer(":0", hybrid, poller)
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func getPath(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := getPath(t, newTestServer().Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("响应状态错误: %s", resp.Status)
	}
}

func TestParseEndpoint(t *testing.T) {
	handler := newTestServer().Handler()
	rec := postJSON(t, handler, "/api/v1/parse", `{"message":"Bridge 100 USDC from Ethereum to Polygon"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d (%s)", rec.Code, rec.Body.String())
	}

	var intent reasoning.Intent
	if err := json.Unmarshal(rec.Body.Bytes(), &intent); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if intent.Status != reasoning.StatusSuccess {
		t.Fatalf("解析状态错误: %s", intent.Status)
	}
	if intent.Action != reasoning.ActionBridge || intent.FromChain != "sepolia" {
		t.Fatalf("意图错误: %+v", intent)
	}
}

func TestParseEndpointRejectsEmptyBody(t *testing.T) {
	rec := postJSON(t, newTestServer().Handler(), "/api/v1/parse", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("空 message 应返回 400: %d", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	handler := newTestServer().Handler()
	rec := postJSON(t, handler, "/api/v1/validate",
		`{"status":"success","action":"bridge","from_chain":"sepolia","to_chain":"polygon-amoy","from_token":"USDC","amount":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", rec.Code)
	}

	var resp struct {
		Data struct {
			Valid  bool   `json:"valid"`
			Reason string `json:"reason"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if !resp.Data.Valid {
		t.Fatalf("完整意图应通过校验: %s", resp.Data.Reason)
	}

	rec = postJSON(t, handler, "/api/v1/validate", `{"status":"success","action":"bridge"}`)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if resp.Data.Valid || resp.Data.Reason == "" {
		t.Fatalf("缺槽位的意图不应通过校验: %+v", resp.Data)
	}
}

func TestBridgeStatusUnknown(t *testing.T) {
	rec := getPath(t, newTestServer().Handler(), "/api/v1/bridge-status/0xdeadbeef")
	if rec.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", rec.Code)
	}
	var resp struct {
		Data relayer.BridgeStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if resp.Data.Status != relayer.StateUnknown {
		t.Fatalf("未知哈希状态错误: %s", resp.Data.Status)
	}
}

func TestCheckEventsEndpoint(t *testing.T) {
	rec := postJSON(t, newTestServer().Handler(), "/api/v1/relayer/check-events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data relayer.PollResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if resp.Data.CurrentBlock != 5000 || resp.Data.FromBlock != 4900 {
		t.Fatalf("轮询结果错误: %+v", resp.Data)
	}
}

func TestStatsEndpoint(t *testing.T) {
	handler := newTestServer().Handler()
	postJSON(t, handler, "/api/v1/parse", `{"message":"Bridge 100 USDC from Ethereum to Polygon"}`)

	rec := getPath(t, handler, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", rec.Code)
	}
	var resp struct {
		Data struct {
			Parser struct {
				ParseCount int `json:"parse_count"`
			} `json:"parser"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if resp.Data.Parser.ParseCount != 1 {
		t.Fatalf("解析计数错误: %d", resp.Data.Parser.ParseCount)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestServer().Handler()
	getPath(t, handler, "/health")

	rec := getPath(t, handler, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "crossmind_http_requests_total") {
		t.Fatal("指标输出缺少请求计数")
	}
}

func TestQuoteEndpointUnconfigured(t *testing.T) {
	rec := postJSON(t, newTestServer().Handler(), "/api/v1/quote", `{"from_token":"USDC","to_token":"USDT","amount":50}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("未配置行情服务应返回 503: %d", rec.Code)
	}
}
