package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lcalzada-xor/apmac/internal/adapters/phy"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Interface    string
	MockMode     bool
	MockScenario string

	SSID     string
	BSSID    string
	Standard string
	Channel  int

	BeaconIntervalUs int // in microseconds
	BeaconGeneration bool
	BeaconJitter     bool
	BSSColor         int
	NonErpProtection bool
	ShortSlotTime    bool
	ShortPreamble    bool
	QoS              bool
	// PerStationQueues gives every AID its own queues, as HE APs do.
	PerStationQueues bool

	Addr     string
	GRPCPort int
	DBPath   string
	PcapPath string
	Debug    bool
	// TraceRatio is the fraction of association handshakes traced to
	// stderr. Zero disables tracing.
	TraceRatio     float64
	AllowedOrigins []string
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	return LoadArgs(flag.CommandLine, os.Args[1:])
}

// LoadArgs is Load with an explicit flag set and argument list.
func LoadArgs(fs *flag.FlagSet, args []string) *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Interface = getEnv("APMAC_INTERFACE", "wlan0")
	cfg.MockMode = getEnvBool("APMAC_MOCK", false)
	cfg.MockScenario = getEnv("APMAC_MOCK_SCENARIO", "basic")
	cfg.SSID = getEnv("APMAC_SSID", "apmac")
	cfg.BSSID = getEnv("APMAC_BSSID", "02:00:00:00:00:01")
	cfg.Standard = getEnv("APMAC_STANDARD", "n")
	cfg.Channel = getEnvInt("APMAC_CHANNEL", 6)
	cfg.BeaconIntervalUs = getEnvInt("APMAC_BEACON_INTERVAL", 102400)
	cfg.BeaconGeneration = getEnvBool("APMAC_BEACONS", true)
	cfg.BeaconJitter = getEnvBool("APMAC_BEACON_JITTER", true)
	cfg.BSSColor = getEnvInt("APMAC_BSS_COLOR", 0)
	cfg.NonErpProtection = getEnvBool("APMAC_ERP_PROTECTION", true)
	cfg.ShortSlotTime = getEnvBool("APMAC_SHORT_SLOT", true)
	cfg.ShortPreamble = getEnvBool("APMAC_SHORT_PREAMBLE", true)
	cfg.QoS = getEnvBool("APMAC_QOS", false)
	cfg.PerStationQueues = getEnvBool("APMAC_PER_STA_QUEUES", false)
	cfg.Addr = getEnv("APMAC_ADDR", ":8080")
	cfg.GRPCPort = getEnvInt("APMAC_GRPC", 9000)
	cfg.DBPath = getEnv("APMAC_DB", getDefaultDBPath())
	cfg.PcapPath = getEnv("APMAC_PCAP", "")
	cfg.Debug = getEnvBool("APMAC_DEBUG", false)
	cfg.TraceRatio = getEnvFloat("APMAC_TRACE_RATIO", 0)
	origins := getEnv("APMAC_ALLOWED_ORIGINS", "")

	// Command Line Flags (Override Env)
	fs.StringVar(&cfg.Interface, "i", cfg.Interface, "Network interface in monitor mode")
	fs.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run against scripted stations instead of a radio")
	fs.StringVar(&cfg.MockScenario, "scenario", cfg.MockScenario, "Mock scenario (basic, mixed, busy)")
	fs.StringVar(&cfg.SSID, "ssid", cfg.SSID, "SSID to advertise")
	fs.StringVar(&cfg.BSSID, "bssid", cfg.BSSID, "AP address, also the BSSID")
	fs.StringVar(&cfg.Standard, "standard", cfg.Standard, "PHY standard (b, g, a, n, ac, ax)")
	fs.IntVar(&cfg.Channel, "channel", cfg.Channel, "Operating channel")
	fs.IntVar(&cfg.BeaconIntervalUs, "beacon-interval", cfg.BeaconIntervalUs, "Beacon interval in microseconds")
	fs.BoolVar(&cfg.BeaconGeneration, "beacons", cfg.BeaconGeneration, "Send beacons")
	fs.BoolVar(&cfg.BeaconJitter, "beacon-jitter", cfg.BeaconJitter, "Randomize the first beacon")
	fs.IntVar(&cfg.BSSColor, "bss-color", cfg.BSSColor, "BSS colour (0-255, low six bits advertised)")
	fs.BoolVar(&cfg.NonErpProtection, "erp-protection", cfg.NonErpProtection, "Protect ERP traffic when non-ERP stations are present")
	fs.BoolVar(&cfg.ShortSlotTime, "short-slot", cfg.ShortSlotTime, "Advertise short slot time")
	fs.BoolVar(&cfg.ShortPreamble, "short-preamble", cfg.ShortPreamble, "Allow short PHY preamble")
	fs.BoolVar(&cfg.QoS, "qos", cfg.QoS, "Enable QoS on pre-HT standards")
	fs.BoolVar(&cfg.PerStationQueues, "per-sta-queues", cfg.PerStationQueues, "Per-station transmit queues")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	fs.IntVar(&cfg.GRPCPort, "grpc", cfg.GRPCPort, "gRPC health port (0 to disable)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database (empty to disable)")
	fs.StringVar(&cfg.PcapPath, "pcap", cfg.PcapPath, "Path to save PCAP file (empty to disable)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	fs.Float64Var(&cfg.TraceRatio, "trace-ratio", cfg.TraceRatio, "Fraction of handshakes to trace (0 to disable)")
	fs.StringVar(&origins, "origins", origins, "Extra allowed websocket origins (comma separated)")

	if err := fs.Parse(args); err != nil {
		slog.Warn("Failed to parse flags", "error", err)
	}

	cfg.AllowedOrigins = parseList(origins)
	return cfg
}

// Validate rejects settings the AP cannot run with.
func (c *Config) Validate() error {
	if _, err := phy.ForStandard(c.Standard, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Channel < 0 || c.Channel > 196 {
		return fmt.Errorf("%w: channel %d", ErrInvalidConfig, c.Channel)
	}
	if c.BeaconIntervalUs <= 0 {
		return fmt.Errorf("%w: beacon interval %dus", ErrInvalidConfig, c.BeaconIntervalUs)
	}
	if c.TraceRatio < 0 || c.TraceRatio > 1 {
		return fmt.Errorf("%w: trace ratio %v", ErrInvalidConfig, c.TraceRatio)
	}
	if c.BSSColor < 0 || c.BSSColor > domain.MaxBSSColor {
		return fmt.Errorf("%w: BSS colour %d", ErrInvalidConfig, c.BSSColor)
	}
	if c.SSID == "" || len(c.SSID) > 32 {
		return fmt.Errorf("%w: SSID must be 1-32 bytes", ErrInvalidConfig)
	}
	mac, err := domain.ParseMAC(c.BSSID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if mac.IsZero() || mac.IsGroup() {
		return fmt.Errorf("%w: BSSID %s is not a unicast address", ErrInvalidConfig, mac)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("%w: gRPC port %d", ErrInvalidConfig, c.GRPCPort)
	}
	if !c.MockMode && c.Interface == "" {
		return fmt.Errorf("%w: an interface is required outside mock mode", ErrInvalidConfig)
	}
	return nil
}

// Address returns the parsed BSSID. Call after Validate.
func (c *Config) Address() domain.MAC {
	mac, _ := domain.ParseMAC(c.BSSID)
	return mac
}

// BeaconInterval returns the beacon interval as a duration.
func (c *Config) BeaconInterval() time.Duration {
	return time.Duration(c.BeaconIntervalUs) * time.Microsecond
}

func parseList(s string) []string {
	var out []string
	if s == "" {
		return out
	}
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("Could not get user home directory, using current dir", "error", err)
		return "apmac.db"
	}

	dir := filepath.Join(home, ".apmac")
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("Could not create .apmac directory, using current dir", "error", err)
		return "apmac.db"
	}

	return filepath.Join(dir, "apmac.db")
}
