package main

import (
	"crypto/tls"
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// UserResp represents the response returned by the server after user creation
type UserResp struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

func main() {
	// --- Command-line flags ---
	var server string
	var duration int
	var concurrency int
	var follows int
	var readRatio float64
	var csvFile string
	var trimPercent float64
	var insecure bool

	flag.StringVar(&server, "server", "http://localhost:8080", "server base URL")
	flag.IntVar(&duration, "duration", 30, "duration in seconds")
	flag.IntVar(&concurrency, "c", 50, "number of concurrent goroutines / users")
	flag.IntVar(&follows, "follows", 10, "follows per user")
	flag.Float64Var(&readRatio, "read", 0.8, "share of requests that read the feed instead of posting")
	flag.StringVar(&csvFile, "csv", "latencies.csv", "CSV file to save latencies")
	flag.Float64Var(&trimPercent, "trim", 1.0, "percent of latency to trim from top and bottom for trimmed mean")
	flag.BoolVar(&insecure, "k", false, "skip TLS certificate verification")
	flag.Parse()

	client := resty.New().
		SetBaseURL(server).
		SetTimeout(10 * time.Second).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: insecure})

	// --- Create users for each goroutine ---
	fmt.Printf("Creating %d users...\n", concurrency)
	users := make([]UserResp, concurrency)
	for i := 0; i < concurrency; i++ {
		resp, err := client.R().
			SetBody(map[string]string{"username": fmt.Sprintf("load-user-%d-%d", i, time.Now().UnixNano())}).
			SetResult(&users[i]).
			Post("/users")
		if err != nil || resp.IsError() {
			panic(fmt.Sprintf("failed to create user: %v %s", err, resp))
		}
	}

	// --- Random follow graph ---
	for _, u := range users {
		for j := 0; j < follows; j++ {
			followee := users[rand.Intn(len(users))]
			if followee.UserID == u.UserID {
				continue
			}
			_, _ = client.R().SetAuthToken(u.Token).
				SetBody(map[string]string{"followee_id": followee.UserID}).
				Post("/follow")
		}
	}
	fmt.Println("Users and follows created.")

	// --- Prepare concurrency test ---
	stopTime := time.Now().Add(time.Duration(duration) * time.Second)
	var wg sync.WaitGroup

	// Atomic counters for thread-safe tracking
	var requests int64
	var successes int64
	var errors4xx int64
	var errors5xx int64

	postLat := make([][]float64, concurrency)
	feedLat := make([][]float64, concurrency)

	// --- Start concurrent goroutines for load test ---
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			user := users[idx]

			for time.Now().Before(stopTime) {
				start := time.Now()
				var resp *resty.Response
				var err error
				reading := rand.Float64() < readRatio
				if reading {
					resp, err = client.R().SetAuthToken(user.Token).Get("/feed?limit=50")
				} else {
					resp, err = client.R().SetAuthToken(user.Token).
						SetBody(map[string]string{"content": fmt.Sprintf("load test post %d", time.Now().UnixNano())}).
						Post("/posts")
				}
				lat := time.Since(start).Seconds() * 1000 // latency in ms
				atomic.AddInt64(&requests, 1)
				if reading {
					feedLat[idx] = append(feedLat[idx], lat)
				} else {
					postLat[idx] = append(postLat[idx], lat)
				}

				if err != nil {
					fmt.Printf("Request error: %v\n", err)
					continue
				}

				// Count success/failure by status code
				switch code := resp.StatusCode(); {
				case code >= 200 && code < 300:
					atomic.AddInt64(&successes, 1)
				case code >= 400 && code < 500:
					atomic.AddInt64(&errors4xx, 1)
					fmt.Printf("Status %d: %s\n", code, resp.String())
				case code >= 500:
					atomic.AddInt64(&errors5xx, 1)
					fmt.Printf("Status %d: %s\n", code, resp.String())
				}
			}
		}(i)
	}

	wg.Wait()

	fmt.Printf("Requests: %d  Successes: %d  4xx: %d  5xx: %d\n", requests, successes, errors4xx, errors5xx)
	posts := merge(postLat)
	feeds := merge(feedLat)
	report("POST /posts", posts, trimPercent)
	report("GET /feed", feeds, trimPercent)

	// --- Save latencies to CSV ---
	f, err := os.Create(csvFile)
	if err != nil {
		fmt.Printf("Failed to create CSV file: %v\n", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"op", "latency_ms"})
	for _, d := range posts {
		w.Write([]string{"post", fmt.Sprintf("%.3f", d)})
	}
	for _, d := range feeds {
		w.Write([]string{"feed", fmt.Sprintf("%.3f", d)})
	}
	fmt.Printf("Saved latencies to %s\n", csvFile)
}

func merge(slices [][]float64) []float64 {
	var all []float64
	for _, s := range slices {
		all = append(all, s...)
	}
	sort.Float64s(all)
	return all
}

func report(name string, lat []float64, trimPercent float64) {
	fmt.Printf("%s n=%d latency (ms): trimmed_mean=%.2f p50=%.2f p90=%.2f p99=%.2f\n",
		name, len(lat), trimmedMean(lat, trimPercent),
		percentile(lat, 50), percentile(lat, 90), percentile(lat, 99))
}

// trimmedMean calculates mean latency after trimming top/bottom trimPercent values
func trimmedMean(data []float64, trimPercent float64) float64 {
	if len(data) == 0 {
		return 0
	}
	trim := int(float64(len(data)) * trimPercent / 100.0)
	if trim*2 >= len(data) {
		trim = len(data) / 2
	}
	trimmed := data[trim : len(data)-trim]
	if len(trimmed) == 0 {
		return 0
	}
	var sum float64
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}

// percentile calculates the p-th percentile from sorted data
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	k := (p / 100.0) * float64(len(data)-1)
	f := int(k)
	c := f + 1
	if c >= len(data) {
		return data[len(data)-1]
	}
	return data[f]*(float64(c)-k) + data[c]*(k-float64(f))
}
