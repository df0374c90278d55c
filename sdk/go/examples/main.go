package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"crossmind/sdk/go/crossmind"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/parse", func(w http.ResponseWriter, r *http.Request) {
		amount := 100.0
		_ = json.NewEncoder(w).Encode(crossmind.Intent{
			Status:     "success",
			Action:     "bridge",
			FromChain:  "sepolia",
			ToChain:    "polygon-amoy",
			FromToken:  "USDC",
			Amount:     &amount,
			Confidence: 0.85,
			Engine:     "symbolic",
			CreatedAt:  time.Now().Unix(),
		})
	})
	mux.HandleFunc("/api/v1/validate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   crossmind.Validation{Valid: true},
		})
	})
	mux.HandleFunc("/api/v1/relayer/check-events", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": crossmind.PollResult{
				CurrentBlock: 5000,
				FromBlock:    4900,
				EventsFound:  1,
				NewBridges:   1,
				Completed:    1,
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := crossmind.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	intent, err := client.ParseIntent(ctx, "Bridge 100 USDC from Ethereum to Polygon")
	if err != nil {
		panic(err)
	}
	fmt.Printf("parsed intent: %s %s -> %s (confidence %.2f)\n",
		intent.Action, intent.FromChain, intent.ToChain, intent.Confidence)

	validation, err := client.ValidateIntent(ctx, intent)
	if err != nil {
		panic(err)
	}
	fmt.Printf("intent valid: %v\n", validation.Valid)

	result, err := client.CheckEvents(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("relayer scanned blocks %d-%d, settled %d bridge(s)\n",
		result.FromBlock, result.CurrentBlock, result.Completed)
}
