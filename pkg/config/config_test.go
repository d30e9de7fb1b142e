package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, []string{"png", "jpg", "jpeg", "mp4"}, cfg.Storage.AllowedExtensions)
	assert.Equal(t, 15*time.Minute, cfg.Codes.Expiration)
	assert.Equal(t, 24*time.Hour, cfg.Codes.Retention)
	assert.Zero(t, cfg.Codes.ResetRequestCooldown)
	assert.Empty(t, cfg.Moderation.RestrictedWords)
	assert.Equal(t, int64(20*1024*1024), cfg.Storage.MaxFileSizeBytes)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("RESTRICTED_WORDS", " spam, Scam ,,")
	v.Set("STORAGE_ALLOWED_MIME_TYPES", "IMAGE/PNG")
	v.Set("CODE_EXPIRATION", "not-a-duration")
	v.Set("RESET_REQUEST_COOLDOWN", "30s")

	cfg := fromViper(v)
	assert.Equal(t, []string{"spam", "Scam"}, cfg.Moderation.RestrictedWords)
	assert.Equal(t, []string{"image/png"}, cfg.Storage.AllowedMIMEs)
	assert.Equal(t, 15*time.Minute, cfg.Codes.Expiration)
	assert.Equal(t, 30*time.Second, cfg.Codes.ResetRequestCooldown)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim("a, ,b"))
}
