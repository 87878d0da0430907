package main

import (
	"crypto/tls"
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"example.com/timelinefeed/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// UserResp represents the server's response when a user is created.
type UserResp struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// Measures post-to-screen latency: followers hold /stream open while authors
// post, and each delivery is timed against the message timestamp.
func main() {
	var serverAddr string
	var U, F, P, concurrency int
	var waitTimeout int
	var insecure bool

	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "server base URL")
	flag.IntVar(&U, "users", 50, "number of users to create")
	flag.IntVar(&F, "follows", 10, "average follows per user")
	flag.IntVar(&P, "posts", 100, "number of posts to publish")
	flag.IntVar(&concurrency, "c", 20, "concurrency for posting")
	flag.IntVar(&waitTimeout, "timeout", 10, "seconds to wait for deliveries")
	flag.BoolVar(&insecure, "k", false, "skip TLS certificate verification")
	flag.Parse()

	tlsCfg := &tls.Config{InsecureSkipVerify: insecure}
	client := resty.New().SetBaseURL(serverAddr).SetTimeout(10 * time.Second).SetTLSClientConfig(tlsCfg)

	// --- 1) Create users ---
	fmt.Printf("Creating %d users...\n", U)
	users := make([]UserResp, U)
	for i := range users {
		resp, err := client.R().
			SetBody(map[string]string{"username": fmt.Sprintf("user-%d-%d", i, time.Now().UnixNano())}).
			SetResult(&users[i]).
			Post("/users")
		if err != nil || resp.IsError() {
			fmt.Printf("create user error: %v %s\n", err, resp)
			os.Exit(1)
		}
	}

	// --- 2) Create follow relationships between users ---
	fmt.Printf("Creating follows (~%d per user)...\n", F)
	followers := make(map[string]map[string]struct{})
	for _, u := range users {
		for j := 0; j < F; j++ {
			followee := users[rand.Intn(len(users))]
			if followee.UserID == u.UserID {
				continue
			}
			resp, err := client.R().SetAuthToken(u.Token).
				SetBody(map[string]string{"followee_id": followee.UserID}).
				Post("/follow")
			if err != nil || resp.IsError() {
				fmt.Printf("follow error: %v %s\n", err, resp)
				os.Exit(1)
			}
			if followers[followee.UserID] == nil {
				followers[followee.UserID] = make(map[string]struct{})
			}
			followers[followee.UserID][u.UserID] = struct{}{}
		}
	}

	// --- 3) Open one stream per user ---
	wsURL := "ws" + strings.TrimPrefix(serverAddr, "http") + "/stream"
	dialer := websocket.Dialer{TLSClientConfig: tlsCfg, HandshakeTimeout: 5 * time.Second}

	var latMu sync.Mutex
	var latencies []float64
	var received int64
	var readers sync.WaitGroup
	conns := make([]*websocket.Conn, 0, len(users))

	for _, u := range users {
		conn, _, err := dialer.Dial(wsURL+"?token="+u.Token, nil)
		if err != nil {
			fmt.Printf("stream dial error: %v\n", err)
			os.Exit(1)
		}
		conns = append(conns, conn)

		readers.Add(1)
		go func(self string, conn *websocket.Conn) {
			defer readers.Done()
			for {
				var m models.Message
				if err := conn.ReadJSON(&m); err != nil {
					return
				}
				if string(m.Author) == self {
					continue
				}
				lat := time.Since(m.Timestamp).Seconds() * 1000
				atomic.AddInt64(&received, 1)
				latMu.Lock()
				latencies = append(latencies, lat)
				latMu.Unlock()
			}
		}(u.UserID, conn)
	}
	fmt.Println("Streams connected.")

	// --- 4) Publish posts concurrently ---
	fmt.Printf("Publishing %d posts with concurrency %d...\n", P, concurrency)
	var expected int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i := 0; i < P; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			author := users[rand.Intn(len(users))]
			resp, err := client.R().SetAuthToken(author.Token).
				SetBody(map[string]string{"content": fmt.Sprintf("post %d", i)}).
				Post("/posts")
			if err != nil || resp.IsError() {
				fmt.Printf("post error: %v %s\n", err, resp)
				return
			}
			atomic.AddInt64(&expected, int64(len(followers[author.UserID])))
		}(i)
	}
	wg.Wait()

	// --- 5) Wait for deliveries ---
	deadline := time.Now().Add(time.Duration(waitTimeout) * time.Second)
	for atomic.LoadInt64(&received) < atomic.LoadInt64(&expected) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	for _, c := range conns {
		c.Close()
	}
	readers.Wait()

	missing := expected - received
	if missing < 0 {
		missing = 0
	}

	// --- 6) Compute latency statistics and export to CSV ---
	if len(latencies) == 0 {
		fmt.Println("No deliveries recorded.")
		return
	}
	sort.Float64s(latencies)
	fmt.Printf("Delivery stats (ms): count=%d mean=%.2f p50=%.2f p90=%.2f p99=%.2f missing=%d\n",
		len(latencies), mean(latencies), percentile(latencies, 50),
		percentile(latencies, 90), percentile(latencies, 99), missing)

	f, err := os.Create("e2e_latencies.csv")
	if err != nil {
		fmt.Printf("Failed to create CSV file: %v\n", err)
		return
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"latency_ms"})
	for _, v := range latencies {
		w.Write([]string{fmt.Sprintf("%.3f", v)})
	}
	fmt.Println("Saved e2e_latencies.csv")
}

func mean(data []float64) float64 {
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// percentile calculates the requested percentile using linear interpolation.
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
