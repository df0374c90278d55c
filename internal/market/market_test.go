package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func pythServer(t *testing.T, price string, expo int, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Path != "/v2/updates/price/latest" {
			t.Fatalf("请求路径错误: %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"parsed":[{"price":{"price":"%s","conf":"50000","expo":%d},"publish_time":1700000000}]}`, price, expo)
	}))
}

func TestFetchPrice(t *testing.T) {
	server := pythServer(t, "99985000", -8, nil)
	defer server.Close()

	client := NewPythClient(WithHermesURL(server.URL))
	price, err := client.FetchPrice(context.Background(), "USDC/USD")
	if err != nil {
		t.Fatalf("获取行情失败: %v", err)
	}
	if price.Symbol != "USDC/USD" {
		t.Fatalf("行情对错误: %s", price.Symbol)
	}
	// 99985000 * 10^-8 = 0.99985
	if price.Price < 0.9998 || price.Price > 0.9999 {
		t.Fatalf("价格换算错误: %f", price.Price)
	}
	if price.PublishTime != 1700000000 {
		t.Fatalf("时间戳错误: %d", price.PublishTime)
	}
}

func TestFetchPriceNormalizesSymbol(t *testing.T) {
	server := pythServer(t, "100000000", -8, nil)
	defer server.Close()

	client := NewPythClient(WithHermesURL(server.URL))
	price, err := client.FetchPrice(context.Background(), "usdc")
	if err != nil {
		t.Fatalf("获取行情失败: %v", err)
	}
	if price.Symbol != "USDC/USD" {
		t.Fatalf("符号归一化错误: %s", price.Symbol)
	}
}

func TestFetchPriceUnknownSymbol(t *testing.T) {
	client := NewPythClient()
	if _, err := client.FetchPrice(context.Background(), "DOGE/USD"); err == nil {
		t.Fatal("未知行情对应返回错误")
	}
}

func TestFetchPriceUsesCache(t *testing.T) {
	var hits atomic.Int64
	server := pythServer(t, "100000000", -8, &hits)
	defer server.Close()

	client := NewPythClient(WithHermesURL(server.URL), WithCache(NewMemoryCache(time.Minute)))
	ctx := context.Background()

	if _, err := client.FetchPrice(ctx, "ETH/USD"); err != nil {
		t.Fatalf("首次请求失败: %v", err)
	}
	if _, err := client.FetchPrice(ctx, "ETH/USD"); err != nil {
		t.Fatalf("缓存请求失败: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("缓存未生效, 请求次数: %d", hits.Load())
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache(time.Second)
	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Set(context.Background(), "ETH/USD", &Price{Symbol: "ETH/USD", Price: 3000})
	if _, ok := cache.Get(context.Background(), "ETH/USD"); !ok {
		t.Fatal("未过期的缓存应命中")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get(context.Background(), "ETH/USD"); ok {
		t.Fatal("过期缓存不应命中")
	}
}

func TestSwapQuote(t *testing.T) {
	server := pythServer(t, "100000000", -8, nil)
	defer server.Close()

	client := NewPythClient(WithHermesURL(server.URL))
	quote, err := client.SwapQuote(context.Background(), "USDC", "USDT", 50)
	if err != nil {
		t.Fatalf("询价失败: %v", err)
	}
	if quote.QuoteID == "" {
		t.Fatal("询价应携带唯一 ID")
	}
	if quote.ExchangeRate != 1.0 {
		t.Fatalf("兑换率错误: %f", quote.ExchangeRate)
	}
	if quote.OutputAmount != 50.0 {
		t.Fatalf("产出数量错误: %f", quote.OutputAmount)
	}

	if _, err := client.SwapQuote(context.Background(), "USDC", "USDT", 0); err == nil {
		t.Fatal("数量为 0 的询价应被拒绝")
	}
}
