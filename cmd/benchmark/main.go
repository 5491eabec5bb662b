package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/punchamoorthee/bankrecon/internal/auth"
)

// Config holds the benchmark settings
var (
	targetURL        string
	concurrency      int
	duration         time.Duration
	workload         string
	reconciliationID int64
	actorID          int64
	organizationID   int64
)

// Metrics
var (
	totalRequests uint64
	success2xx    uint64
	fail409       uint64 // Conflicts, e.g. a line matched by a concurrent request
	fail422       uint64 // Business rule rejections
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "mixed", "Workload type: mixed | match")
	flag.Int64Var(&reconciliationID, "reconciliation", 1, "Reconciliation every worker targets")
	flag.Int64Var(&actorID, "actor", 1, "Actor ID sent in identity headers")
	flag.Int64Var(&organizationID, "org", 1, "Organization ID sent in identity headers")
}

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		Lines []struct {
			ID      int64 `json:"id"`
			Cleared bool  `json:"cleared"`
		} `json:"lines"`
	} `json:"data"`
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Reconciliation: %d | Workers: %d | Duration: %s",
		workload, reconciliationID, concurrency, duration)

	lineIDs, err := statementLines()
	if err != nil {
		log.Fatalf("Unable to load reconciliation %d: %v", reconciliationID, err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, lineIDs)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func newRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, targetURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderActorID, strconv.FormatInt(actorID, 10))
	req.Header.Set(auth.HeaderOrganizationID, strconv.FormatInt(organizationID, 10))
	req.Header.Set(auth.HeaderRole, string(auth.RoleFinance))
	return req
}

func statementLines() ([]int64, error) {
	resp, err := http.DefaultClient.Do(newRequest("GET", fmt.Sprintf("/api/v1/reconciliations/%d", reconciliationID), nil))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var ids []int64
	for _, l := range env.Data.Lines {
		if !l.Cleared {
			ids = append(ids, l.ID)
		}
	}
	return ids, nil
}

func nextRequest(lineIDs []int64) *http.Request {
	base := fmt.Sprintf("/api/v1/reconciliations/%d", reconciliationID)
	if workload == "match" {
		return newRequest("POST", base+"/smart-match", nil)
	}

	// Mixed: mostly reads and recalcs, with clear toggles contending for the row lock.
	switch r := rand.Float32(); {
	case r < 0.30:
		return newRequest("GET", base, nil)
	case r < 0.55:
		return newRequest("POST", base+"/recalc", nil)
	case r < 0.70:
		return newRequest("POST", base+"/smart-match", nil)
	default:
		if len(lineIDs) == 0 {
			return newRequest("POST", base+"/recalc", nil)
		}
		id := lineIDs[rand.Intn(len(lineIDs))]
		return newRequest("POST", fmt.Sprintf("/api/v1/statement-lines/%d/cleared", id),
			map[string]bool{"cleared": rand.Intn(2) == 0})
	}
}

func worker(wg *sync.WaitGroup, start time.Time, lineIDs []int64) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		resp, err := client.Do(nextRequest(lineIDs))
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			atomic.AddUint64(&success2xx, 1)
		case resp.StatusCode == http.StatusConflict:
			atomic.AddUint64(&fail409, 1)
		case resp.StatusCode == http.StatusUnprocessableEntity:
			atomic.AddUint64(&fail422, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s2xx := atomic.LoadUint64(&success2xx)
	f409 := atomic.LoadUint64(&fail409)
	f422 := atomic.LoadUint64(&fail422)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	conflictRate := 0.0
	if total > 0 {
		conflictRate = float64(f409) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":          workload,
		"reconciliation_id": reconciliationID,
		"duration_sec":      d.Seconds(),
		"total_requests":    total,
		"throughput_tps":    tps,
		"success":           s2xx,
		"conflicts":         f409,
		"conflict_rate_pct": conflictRate,
		"rule_rejections":   f422,
		"errors":            fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		log.Printf("Unable to save results: %v", err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
