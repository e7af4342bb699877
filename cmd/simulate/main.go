package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/availability"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
	"github.com/hackgods/clinic-booking/pkg/logging"
)

// SimConfig drives a booking contention run against a live api-server.
// Workers race for the same few days so the day lock and the
// recheck-before-write path get exercised.
type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	BookRatio   float64
	Days        int
	PostgresDSN string
	Location    *time.Location
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Percentiles() (p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.Latencies...)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	at := func(pct int) time.Duration {
		idx := len(latencies) * pct / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}
	return at(50), at(95), latencies[len(latencies)-1]
}

type Metrics struct {
	Availability OperationMetrics
	Booking      OperationMetrics
}

type Simulator struct {
	config   SimConfig
	services []clinic.Service
	client   *http.Client
	metrics  Metrics
	logger   zerolog.Logger
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		bootLog := logging.New("dev", "info")
		bootLog.Fatal().Err(err).Msg("invalid config")
	}
	logger := logging.New("dev", "info").With().Str("service", "simulate").Logger()

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("book_ratio", cfg.BookRatio).
		Int("days", cfg.Days).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	err = sim.loadServices(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Fatal().Err(err).Msg("load services")
	}

	sim.Run()
	sim.PrintReport()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{AppName: "simulate"})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := checkNoDoubleBooking(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("double booking detected")
	}
	logger.Info().Msg("no double bookings found")
}

func loadConfig() (SimConfig, error) {
	baseCfg, err := config.Load()
	if err != nil {
		return SimConfig{}, err
	}

	cfg := SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 10),
		BookRatio:   getFloat("SIM_BOOK_RATIO", 0.4),
		Days:        getInt("SIM_DAYS", 3),
		PostgresDSN: baseCfg.PostgresDSN,
		Location:    baseCfg.Location(),
	}

	if cfg.Workers <= 0 {
		return cfg, errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return cfg, errors.New("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return cfg, errors.New("SIM_DAYS must be > 0")
	}
	return cfg, nil
}

func (s *Simulator) loadServices(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/services", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /services: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&s.services); err != nil {
		return err
	}
	if len(s.services) == 0 {
		return errors.New("no services configured")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	faker := gofakeit.New(0)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		date := time.Now().In(s.config.Location).AddDate(0, 0, 1+rng.Intn(s.config.Days)).Format(availability.DateLayout)
		svc := s.services[rng.Intn(len(s.services))]

		slots, ok := s.availability(ctx, date, svc.ID)
		if !ok || len(slots) == 0 || rng.Float64() >= s.config.BookRatio {
			continue
		}
		s.book(ctx, faker, date, svc.ID, slots[rng.Intn(len(slots))])
	}
}

func (s *Simulator) availability(ctx context.Context, date, serviceID string) ([]string, bool) {
	q := url.Values{"date": {date}, "service_id": {serviceID}}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/availability?"+q.Encode(), nil)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.Availability.Record(latency, false, false)
		}
		return nil, false
	}
	defer resp.Body.Close()

	var body struct {
		Slots []string `json:"slots"`
	}
	ok := resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&body) == nil
	s.metrics.Availability.Record(latency, ok, false)
	return body.Slots, ok
}

func (s *Simulator) book(ctx context.Context, faker *gofakeit.Faker, date, serviceID, slot string) {
	payload, _ := json.Marshal(map[string]any{
		"service_id": serviceID,
		"format":     "online",
		"date":       date,
		"start_time": slot,
		"patient": map[string]string{
			"name":  faker.Name(),
			"email": faker.Email(),
			"phone": faker.Phone(),
		},
		"consent":        true,
		"payment_method": "pix",
		"outcome":        "manual",
	})

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/bookings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.Booking.Record(latency, false, false)
		}
		return
	}
	defer resp.Body.Close()

	s.metrics.Booking.Record(latency, resp.StatusCode == http.StatusCreated, resp.StatusCode == http.StatusConflict)
}

// checkNoDoubleBooking fails when two live appointments share a start.
func checkNoDoubleBooking(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, `
		SELECT date, start_time, count(*)
		FROM appointments
		WHERE status <> 'cancelled'
		GROUP BY date, start_time
		HAVING count(*) > 1
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var dupes []string
	for rows.Next() {
		var (
			date, start string
			n           int
		)
		if err := rows.Scan(&date, &start, &n); err != nil {
			return err
		}
		dupes = append(dupes, fmt.Sprintf("%s %s x%d", date, start, n))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(dupes) > 0 {
		return errors.New(strings.Join(dupes, ", "))
	}
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BOOKING CONTENTION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("Booking", &s.metrics.Booking)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	p50, p95, max := om.Percentiles()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: p50=%s p95=%s max=%s\n",
		p50.Round(time.Millisecond), p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
