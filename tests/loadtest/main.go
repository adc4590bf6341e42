// Command loadtest drives a running "dppmini serve" instance with a mix of
// adds, filtered listings and exports, and prints latency percentiles.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dppmini/internal/gtin"

	json "github.com/goccy/go-json"
)

const (
	numProducts = 200
	numBatches  = 50
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

type loadTest struct {
	baseURL  string
	workers  int
	duration time.Duration
	products []string
}

func main() {
	lt := &loadTest{}
	flag.StringVar(&lt.baseURL, "url", "http://127.0.0.1:8501", "server base URL")
	flag.IntVar(&lt.workers, "workers", 20, "concurrent workers")
	flag.DurationVar(&lt.duration, "duration", 10*time.Second, "duration of each phase")
	flag.Parse()

	lt.products = makeProducts(rand.New(rand.NewSource(1)), numProducts)

	fmt.Println("=== DPP Mini Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Products: %d\n\n", lt.workers, lt.duration, numProducts)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(lt.baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Every add rewrites the data file, so write-heavy phases measure fsync.
	fmt.Println("\n--- Phase 1: Seeding (POST /api/items) ---")
	lt.runPhase(func(rng *rand.Rand) result {
		return lt.doAdd(rng)
	})

	fmt.Println("\n--- Phase 2: Mixed load (30% add, 70% read) ---")
	lt.runPhase(func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.30:
			return lt.doAdd(rng)
		case r < 0.70:
			return lt.doList(rng)
		case r < 0.90:
			return lt.doRecent()
		default:
			return lt.doExport(rng)
		}
	})

	fmt.Println("\n--- Phase 3: Read-heavy load (5% add, 95% read) ---")
	lt.runPhase(func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.05:
			return lt.doAdd(rng)
		case r < 0.75:
			return lt.doList(rng)
		case r < 0.95:
			return lt.doRecent()
		default:
			return lt.doExport(rng)
		}
	})
}

// makeProducts returns n random GTIN-13 codes with valid check digits.
func makeProducts(rng *rand.Rand, n int) []string {
	out := make([]string, n)
	for i := range out {
		var b strings.Builder
		for j := 0; j < 12; j++ {
			b.WriteByte(byte('0' + rng.Intn(10)))
		}
		body := b.String()
		out[i] = body + strconv.Itoa(gtin.CheckDigit(body))
	}
	return out
}

func (lt *loadTest) runPhase(workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < lt.workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(lt.duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, lt.duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-24s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 90))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-24s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	if totalOps == 0 {
		return
	}
	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 90))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func (lt *loadTest) do(endpoint string, req *http.Request, want int) result {
	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != want}
}

func (lt *loadTest) doAdd(rng *rand.Rand) result {
	body := map[string]string{
		"gtin":   lt.products[rng.Intn(len(lt.products))],
		"batch":  fmt.Sprintf("LOT-%03d", rng.Intn(numBatches)),
		"expiry": time.Now().AddDate(0, 0, rng.Intn(720)).Format("2006-01-02"),
	}
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, lt.baseURL+"/api/items", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return lt.do("POST /api/items", req, http.StatusCreated)
}

func (lt *loadTest) doList(rng *rand.Rand) result {
	q := url.Values{}
	if rng.Float64() < 0.5 {
		q.Set("gtin", lt.products[rng.Intn(len(lt.products))][:4])
	}
	if rng.Float64() < 0.3 {
		q.Set("batch", fmt.Sprintf("lot-%03d", rng.Intn(numBatches)))
	}
	if rng.Float64() < 0.3 {
		q.Set("from", time.Now().Format("2006-01-02"))
	}
	req, _ := http.NewRequest(http.MethodGet, lt.baseURL+"/api/items?"+q.Encode(), nil)
	return lt.do("GET /api/items", req, http.StatusOK)
}

func (lt *loadTest) doRecent() result {
	req, _ := http.NewRequest(http.MethodGet, lt.baseURL+"/api/items/recent", nil)
	return lt.do("GET /api/items/recent", req, http.StatusOK)
}

func (lt *loadTest) doExport(rng *rand.Rand) result {
	formats := []string{"csv", "xlsx", "zst"}
	f := formats[rng.Intn(len(formats))]
	req, _ := http.NewRequest(http.MethodGet, lt.baseURL+"/api/export?format="+f, nil)
	return lt.do("GET /api/export?format="+f, req, http.StatusOK)
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
