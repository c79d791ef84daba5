package config

import (
	"testing"
	"time"
)

func TestLoadSearchConfigDefaults(t *testing.T) {
	t.Setenv("SEARCH_RESULT_CAP", "")
	t.Setenv("SEARCH_HIGH_RELEVANCE_KM", "")
	sc := LoadSearchConfig()
	if sc.ResultCap != 50 || sc.HighRelevanceKm != 10 {
		t.Fatalf("unexpected defaults %+v", sc)
	}
}

func TestLoadSearchConfigOverridesAndClamps(t *testing.T) {
	t.Setenv("SEARCH_RESULT_CAP", "20")
	t.Setenv("SEARCH_HIGH_RELEVANCE_KM", "-3")
	t.Setenv("SEARCH_STOP_CACHE_TTL", "1m")
	sc := LoadSearchConfig()
	if sc.ResultCap != 20 {
		t.Errorf("ResultCap = %d", sc.ResultCap)
	}
	if sc.HighRelevanceKm != 10 {
		t.Errorf("HighRelevanceKm = %v, want clamp to 10", sc.HighRelevanceKm)
	}
	if sc.StopCacheTTL != time.Minute {
		t.Errorf("StopCacheTTL = %v", sc.StopCacheTTL)
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "")
	c := LoadRateLimitConfig()
	if c.KeyStrategy != "user_target" {
		t.Errorf("KeyStrategy = %q", c.KeyStrategy)
	}
	if c.Capacity != 1 {
		t.Errorf("Capacity = %d", c.Capacity)
	}
	if c.TTL != 10*time.Second {
		t.Errorf("TTL = %v, want 10s", c.TTL)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "ON")
	if !envBool("X_FLAG", false) {
		t.Fatal("ON should parse as true")
	}
	t.Setenv("X_FLAG", "maybe")
	if envBool("X_FLAG", false) {
		t.Fatal("unknown value should fall back to default")
	}
}

func TestLoadSearchConfigTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "")
	if loc := LoadSearchConfig().Location; loc == nil || loc.String() != "Asia/Ho_Chi_Minh" {
		t.Fatalf("default location = %v", loc)
	}
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	if loc := LoadSearchConfig().Location; loc != time.UTC {
		t.Fatalf("unknown zone must fall back to UTC, got %v", loc)
	}
}
