package loggen

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"
)

var (
	normalIPs     = []string{"192.168.1.10", "192.168.1.15", "192.168.1.20", "10.0.0.5", "10.0.0.8", "172.16.0.100", "172.20.1.50"}
	attackerIPs   = []string{"45.142.212.61", "103.75.201.12", "185.220.101.45"}
	suspiciousIPs = []string{"91.108.56.190", "196.201.233.45", "41.60.232.191"}

	normalUsers = []string{"admin", "johndoe", "janesmith", "devops", "support", "backup"}
	attackUsers = []string{"root", "admin", "user", "test", "oracle", "postgres", "mysql"}
	anyUsers    = append(append([]string(nil), normalUsers...), attackUsers...)
)

// Config configures a Generator.
type Config struct {
	Entries int
	// Seed makes output reproducible. Zero picks a time-based seed.
	Seed uint64
	// Start is the time of the first entry. Zero means seven days ago.
	Start time.Time
	Host  string
}

// Generator produces synthetic sshd password log lines: 70% normal
// activity, 15% brute force from attacker addresses, 10% access from
// suspicious regions and 5% failed logins by normal users.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New creates a generator.
func New(cfg Config) *Generator {
	if cfg.Entries <= 0 {
		cfg.Entries = 5000
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now().Add(-7 * 24 * time.Hour)
	}
	if cfg.Host == "" {
		cfg.Host = "server"
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Lines generates every entry.
func (g *Generator) Lines() []string {
	out := make([]string, 0, g.cfg.Entries)
	for i := 0; i < g.cfg.Entries; i++ {
		out = append(out, g.line(i))
	}
	return out
}

// WriteTo writes every entry to w, one per line.
func (g *Generator) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for i := 0; i < g.cfg.Entries; i++ {
		m, err := bw.WriteString(g.line(i) + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// WriteFile generates cfg.Entries lines into path.
func WriteFile(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if _, err := New(cfg).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return f.Close()
}

func (g *Generator) line(i int) string {
	ts := g.cfg.Start.Add(time.Duration(i*10+g.rng.IntN(31)) * time.Second)

	var ip, user, status string
	switch roll := g.rng.IntN(100); {
	case roll < 70:
		ip = pick(g.rng, normalIPs)
		user = pick(g.rng, normalUsers)
		status = g.weighted(95, "Accepted", "Failed")
	case roll < 85:
		ip = pick(g.rng, attackerIPs)
		user = pick(g.rng, attackUsers)
		status = "Failed"
	case roll < 95:
		ip = pick(g.rng, suspiciousIPs)
		user = pick(g.rng, anyUsers)
		status = g.weighted(80, "Failed", "Accepted")
	default:
		ip = pick(g.rng, normalIPs)
		user = pick(g.rng, normalUsers)
		status = "Failed"
	}

	// Syslog pads single-digit days with a space: "Jan  1".
	return fmt.Sprintf("%s %2d %s %s sshd[%d]: %s password for %s from %s port %d ssh2",
		ts.Format("Jan"), ts.Day(), ts.Format("15:04:05"), g.cfg.Host,
		1000+g.rng.IntN(9000), status, user, ip, 40000+g.rng.IntN(20001))
}

func (g *Generator) weighted(pct int, hit, miss string) string {
	if g.rng.IntN(100) < pct {
		return hit
	}
	return miss
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.IntN(len(from))]
}
