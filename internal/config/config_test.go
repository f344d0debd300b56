package config

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Map.Zoom)
	assert.Equal(t, 0.5, cfg.Map.FillOpacity)
	assert.Equal(t, DefaultExtent, cfg.Map.Extent)
	assert.Equal(t, 10*time.Second, cfg.Map.LookupTimeout)
	assert.Empty(t, cfg.Map.Palette)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, "permit-import-workers", cfg.Worker.ConsumerGroup)
	assert.Equal(t, time.Hour, cfg.Cache.PermitsCacheTTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddr())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("MAP_ZOOM", 13)
	v.Set("MAP_EXTENT", "-79,35.5,-78.5,36")
	v.Set("MAP_PALETTE", "Business=#0000ff; Mixed Use=#ff0000")
	v.Set("REDIS_HOST", "cache")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 13, cfg.Map.Zoom)
	assert.Equal(t, orb.Bound{Min: orb.Point{-79, 35.5}, Max: orb.Point{-78.5, 36}}, cfg.Map.Extent)
	assert.Equal(t, map[string]string{"Business": "#0000ff", "Mixed Use": "#ff0000"}, cfg.Map.Palette)
	assert.Equal(t, "cache:6379", cfg.GetRedisAddr())
}

func TestParseExtent_Invalid(t *testing.T) {
	for _, s := range []string{"1,2,3", "a,b,c,d", "10,0,0,10"} {
		_, err := ParseExtent(s)
		assert.Error(t, err, s)
	}
}

func TestParsePalette_Invalid(t *testing.T) {
	_, err := ParsePalette("Business")
	assert.Error(t, err)
}
