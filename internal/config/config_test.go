package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DEFAULT_PASSING_THRESHOLD", "POINTS_PER_CORRECT", "SUBMIT_RATE_PER_MINUTE", "DRAFT_TTL_HOURS", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.DefaultPassingThreshold != 60 {
		t.Errorf("threshold = %v, want 60", cfg.DefaultPassingThreshold)
	}
	if cfg.PointsPerCorrect != 10 || cfg.SubmitRatePerMinute != 30 {
		t.Errorf("points/rate = %d/%d", cfg.PointsPerCorrect, cfg.SubmitRatePerMinute)
	}
	if cfg.DraftTTL != 24*time.Hour {
		t.Errorf("draft ttl = %v", cfg.DraftTTL)
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("origins = %v, want nil", cfg.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DEFAULT_PASSING_THRESHOLD", " 72.5 ")
	t.Setenv("POINTS_PER_CORRECT", "3")
	t.Setenv("DRAFT_TTL_HOURS", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg := Load()
	if cfg.DefaultPassingThreshold != 72.5 {
		t.Errorf("threshold = %v", cfg.DefaultPassingThreshold)
	}
	if cfg.PointsPerCorrect != 3 || cfg.DraftTTL != 2*time.Hour {
		t.Errorf("points/ttl = %d/%v", cfg.PointsPerCorrect, cfg.DraftTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestGetEnvFloatRejectsInvalid(t *testing.T) {
	for _, v := range []string{"-5", "abc", "NaN?"} {
		t.Setenv("THRESHOLD_TEST", v)
		if got := getEnvFloat("THRESHOLD_TEST", 60); got != 60 {
			t.Errorf("getEnvFloat(%q) = %v, want fallback", v, got)
		}
	}
}

func TestCacheKeys(t *testing.T) {
	if got := CacheKey.ExamPaperKey("e1"); got != "exam:e1:paper" {
		t.Errorf("paper key %q", got)
	}
	if got := CacheKey.DraftAnswersKey("e1", "u1"); got != "user:u1:exam:e1:draft" {
		t.Errorf("draft key %q", got)
	}
	if got := CacheKey.ExamMonitorChannel("e1"); got != "exam:e1:monitor" {
		t.Errorf("monitor channel %q", got)
	}
}
