package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type options struct {
	baseURL     string
	requests    int
	concurrency int
	useSession  bool
	timeout     time.Duration
}

var descriptions = []string{
	"implement a login form",
	"analyze the uploaded requirements document",
	"select components for the checkout page",
	"package the generated bundle for download",
	"verify the rendered layout",
	"build a data table with sorting",
	"parse the user intent into fields",
	"match component candidates against the catalog",
}

func main() {
	var opt options
	flag.StringVar(&opt.baseURL, "base-url", "http://localhost:8080", "server base URL")
	flag.IntVar(&opt.requests, "requests", 100, "total number of route requests")
	flag.IntVar(&opt.concurrency, "concurrency", 8, "concurrent workers")
	flag.BoolVar(&opt.useSession, "session", false, "route all tasks through one shared session")
	flag.DurationVar(&opt.timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	if opt.requests <= 0 || opt.concurrency <= 0 {
		log.Fatal("requests and concurrency must be positive")
	}

	client := &http.Client{Timeout: opt.timeout}

	sessionID := ""
	if opt.useSession {
		id, err := createSession(client, opt.baseURL)
		if err != nil {
			log.Fatalf("create session: %v", err)
		}
		sessionID = id
		fmt.Printf("session:     %s\n", sessionID)
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		failed    atomic.Int64
		mu        sync.Mutex
		latencies []time.Duration
		lastErr   atomic.Value
	)

	jobs := make(chan int)
	started := time.Now()
	for w := 0; w < opt.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				latency, err := routeOnce(client, opt.baseURL, descriptions[i%len(descriptions)], sessionID)
				if err != nil {
					failed.Add(1)
					lastErr.Store(err)
					continue
				}
				succeeded.Add(1)
				mu.Lock()
				latencies = append(latencies, latency)
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < opt.requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(started)

	fmt.Printf("requests:    %d\n", opt.requests)
	fmt.Printf("succeeded:   %d\n", succeeded.Load())
	fmt.Printf("failed:      %d\n", failed.Load())
	fmt.Printf("elapsed:     %s\n", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		fmt.Printf("throughput:  %.1f req/s\n", float64(opt.requests)/elapsed.Seconds())
	}
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Printf("latency p50: %s\n", percentile(latencies, 0.50).Round(time.Microsecond))
		fmt.Printf("latency p95: %s\n", percentile(latencies, 0.95).Round(time.Microsecond))
		fmt.Printf("latency p99: %s\n", percentile(latencies, 0.99).Round(time.Microsecond))
	}
	if err, ok := lastErr.Load().(error); ok && failed.Load() > 0 {
		fmt.Printf("last error:  %v\n", err)
	}
}

func createSession(client *http.Client, baseURL string) (string, error) {
	resp, err := client.Post(baseURL+"/v1/sessions", "application/json", bytes.NewReader([]byte(`{"user_id":"loadgen"}`)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

func routeOnce(client *http.Client, baseURL, description, sessionID string) (time.Duration, error) {
	payload := map[string]interface{}{"description": description}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	started := time.Now()
	resp, err := client.Post(baseURL+"/v1/tasks/route", "application/json", bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	latency := time.Since(started)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return latency, nil
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}
