package group

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.Equal(t, "balancer", cfg.SubjectPrefix)
	require.Equal(t, 30*time.Second, cfg.RankTTL)
	require.Equal(t, 30*time.Second, cfg.JoinTimeout)
	require.Equal(t, 60*time.Second, cfg.CollectiveTimeout)
	require.Empty(t, cfg.Name)
	require.Zero(t, cfg.Size)
}

func TestSetDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{Name: "sim", Size: 4}
	SetDefaults(&cfg)

	require.Equal(t, "balancer", cfg.SubjectPrefix)
	require.Equal(t, "balancer-ranks-sim", cfg.RankBucket)
	require.Equal(t, 30*time.Second, cfg.RankTTL)
	require.Equal(t, 30*time.Second, cfg.JoinTimeout)
	require.Equal(t, 60*time.Second, cfg.CollectiveTimeout)
}

func TestSetDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Name:              "sim",
		Size:              2,
		SubjectPrefix:     "custom",
		RankBucket:        "my-bucket",
		RankTTL:           5 * time.Second,
		JoinTimeout:       time.Minute,
		CollectiveTimeout: 2 * time.Minute,
	}
	SetDefaults(&cfg)

	require.Equal(t, "custom", cfg.SubjectPrefix)
	require.Equal(t, "my-bucket", cfg.RankBucket)
	require.Equal(t, 5*time.Second, cfg.RankTTL)
	require.Equal(t, time.Minute, cfg.JoinTimeout)
	require.Equal(t, 2*time.Minute, cfg.CollectiveTimeout)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		cfg := Config{Name: "sim", Size: 2}
		SetDefaults(&cfg)
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Name = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("name with subject token characters", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"a.b", "a b", "a*", "a>"} {
			cfg := valid()
			cfg.Name = name
			require.Error(t, cfg.Validate(), "name %q should be rejected", name)
		}
	})

	t.Run("prefix with subject token characters", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.SubjectPrefix = "bad.prefix"
		require.Error(t, cfg.Validate())
	})

	t.Run("size below one", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Size = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("rank ttl too short", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.RankTTL = 100 * time.Millisecond
		require.Error(t, cfg.Validate())
	})

	t.Run("non-positive collective timeout", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.CollectiveTimeout = 0
		require.Error(t, cfg.Validate())
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	want := Config{
		Name:              "nbody",
		Size:              8,
		SubjectPrefix:     "sim",
		RankTTL:           10 * time.Second,
		JoinTimeout:       time.Minute,
		CollectiveTimeout: 5 * time.Minute,
	}

	data, err := yaml.Marshal(want)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "group.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "nbody", cfg.Name)
	require.Equal(t, 8, cfg.Size)
	require.Equal(t, "sim", cfg.SubjectPrefix)
	require.Equal(t, 10*time.Second, cfg.RankTTL)
	require.Equal(t, time.Minute, cfg.JoinTimeout)
	require.Equal(t, 5*time.Minute, cfg.CollectiveTimeout)
	// Derived default.
	require.Equal(t, "balancer-ranks-nbody", cfg.RankBucket)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "group.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: tiny\nsize: 1\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "balancer", cfg.SubjectPrefix)
	require.Equal(t, 30*time.Second, cfg.RankTTL)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "group.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: [unclosed"), 0o644))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "group.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: sim\nsize: 0\n"), 0o644))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}
