// Booking race simulator: hammers the booking endpoint with concurrent
// requests for a small set of provider/date/slot combinations, then checks
// the database for blocking-status duplicates. A non-empty duplicate set
// means the no-double-booking invariant was violated.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/config"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/db"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/slot"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	ProviderLimit int
	PatientLimit  int
	DayRange      int
	JWTSecret     string
	PostgresDSN   string
}

type DataPool struct {
	Patients  []uuid.UUID
	Providers []uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	sorted := make([]time.Duration, len(om.Latencies))
	copy(sorted, om.Latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, l := range sorted {
		total += l
	}
	return total / time.Duration(len(sorted)),
		sorted[len(sorted)/2],
		sorted[len(sorted)*95/100]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	sim := SimConfig{
		APIBaseURL:    getEnv("SIM_API_URL", "http://localhost:"+cfg.HTTPPort),
		Duration:      getDurationEnv("SIM_DURATION", 30*time.Second),
		Workers:       getIntEnv("SIM_WORKERS", 16),
		ProviderLimit: getIntEnv("SIM_PROVIDERS", 3),
		PatientLimit:  getIntEnv("SIM_PATIENTS", 200),
		DayRange:      getIntEnv("SIM_DAYS", 2),
		JWTSecret:     cfg.JWTSecret,
		PostgresDSN:   cfg.PostgresDSN,
	}

	ctx := context.Background()

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, sim.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	data, err := loadDataPool(ctx, pool, sim)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("simulating with %d patients x %d providers x %d days x %d slots",
		len(data.Patients), len(data.Providers), sim.DayRange, len(slot.Catalog))

	metrics := &OperationMetrics{}
	runWorkers(ctx, sim, data, metrics)

	avg, p50, p95 := metrics.Stats()
	log.Printf("requests=%d created=%d conflicts=%d errors=%d", metrics.Total, metrics.Success, metrics.Conflict, metrics.Error)
	log.Printf("latency avg=%s p50=%s p95=%s", avg, p50, p95)

	if err := verifyNoDoubleBooking(ctx, pool); err != nil {
		log.Fatalf("INVARIANT VIOLATED: %v", err)
	}
	log.Println("invariant holds: no provider/date/slot has more than one blocking appointment")
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, sim SimConfig) (*DataPool, error) {
	data := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, sim.PatientLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		data.Patients = append(data.Patients, id)
	}

	provRows, err := pool.Query(ctx, `SELECT id FROM providers LIMIT $1`, sim.ProviderLimit)
	if err != nil {
		return nil, err
	}
	defer provRows.Close()
	for provRows.Next() {
		var id uuid.UUID
		if err := provRows.Scan(&id); err != nil {
			return nil, err
		}
		data.Providers = append(data.Providers, id)
	}

	if len(data.Patients) == 0 || len(data.Providers) == 0 {
		return nil, fmt.Errorf("no seeded patients/providers, run cmd/seed first")
	}
	return data, nil
}

func runWorkers(ctx context.Context, sim SimConfig, data *DataPool, metrics *OperationMetrics) {
	deadline := time.Now().Add(sim.Duration)
	client := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	for w := 0; w < sim.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for time.Now().Before(deadline) {
				patient := data.Patients[rng.Intn(len(data.Patients))]
				provider := data.Providers[rng.Intn(len(data.Providers))]
				date := time.Now().AddDate(0, 0, 1+rng.Intn(sim.DayRange)).Format(slot.DateFormat)
				label := slot.Catalog[rng.Intn(len(slot.Catalog))]

				start := time.Now()
				status, err := bookOnce(ctx, client, sim, patient, provider, date, label)
				if err != nil {
					atomic.AddInt64(&metrics.Total, 1)
					atomic.AddInt64(&metrics.Error, 1)
					continue
				}
				metrics.Record(time.Since(start), status)
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()
}

func bookOnce(ctx context.Context, client *http.Client, sim SimConfig, patient, provider uuid.UUID, date, label string) (int, error) {
	token, err := patientToken(sim.JWTSecret, patient)
	if err != nil {
		return 0, err
	}

	body, _ := json.Marshal(map[string]string{
		"providerId": provider.String(),
		"date":       date,
		"slot":       label,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sim.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func patientToken(secret string, patient uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub":  patient.String(),
		"role": "patient",
		"name": "Simulated Patient",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verifyNoDoubleBooking(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, `
		SELECT provider_id, date, slot, COUNT(*)
		FROM appointments
		WHERE status IN ('pending', 'confirmed')
		GROUP BY provider_id, date, slot
		HAVING COUNT(*) > 1
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var providerID uuid.UUID
		var date time.Time
		var label string
		var count int
		if err := rows.Scan(&providerID, &date, &label, &count); err != nil {
			return err
		}
		violations = append(violations, fmt.Sprintf("%s %s %s x%d", providerID, date.Format(slot.DateFormat), label, count))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(violations) > 0 {
		return fmt.Errorf("%d double-booked slots: %v", len(violations), violations)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
