package config

import (
	"testing"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MIRDATA_HOME", "/data/mir")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("MINIO_USE_SSL", "false")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")

	cfg := Load()

	if cfg.DataHome != "/data/mir" {
		t.Errorf("got DataHome %q, want /data/mir", cfg.DataHome)
	}
	if cfg.RedisDB != 4 {
		t.Errorf("got RedisDB %d, want 4", cfg.RedisDB)
	}
	if cfg.MinioUseSSL {
		t.Error("got MinioUseSSL true, want false")
	}
	if cfg.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("got FFmpegPath %q", cfg.FFmpegPath)
	}
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("LOG_MAX_BACKUPS", "many")
	if got := getEnvInt("LOG_MAX_BACKUPS", 3); got != 3 {
		t.Errorf("got %d, want fallback 3", got)
	}
}
