package utils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("with nil values", func(t *testing.T) {
		config := NewConfig(nil)
		require.NotNil(t, config)
		assert.False(t, config.Has("anything"))
	})

	t.Run("with values", func(t *testing.T) {
		values := map[string]string{
			"key1": "value1",
			"key2": "value2",
		}
		config := NewConfig(values)

		assert.Equal(t, "value1", config.Get("key1"))
		assert.Equal(t, "value2", config.Get("key2"))

		// Verify it's a copy, not a reference
		values["key1"] = "modified"
		assert.NotEqual(t, "modified", config.Get("key1"))
	})
}

func TestNewConfigFromEnv(t *testing.T) {
	envContent := "TEST_BLOB_ACCOUNT=clinicstore\n"
	tmpFile, err := os.CreateTemp("", "test_env_*.env")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(envContent)
	require.NoError(t, err)
	tmpFile.Close()

	config := NewConfigFromEnv(tmpFile.Name())
	require.NotNil(t, config)
	assert.Equal(t, "clinicstore", config.Get("TEST_BLOB_ACCOUNT"))
}

func TestConfigGet(t *testing.T) {
	config := NewConfig(map[string]string{
		"existing": "value",
		"empty":    "",
	})

	t.Run("existing key", func(t *testing.T) {
		assert.Equal(t, "value", config.Get("existing"))
	})

	t.Run("non-existing key", func(t *testing.T) {
		assert.Empty(t, config.Get("missing"))
	})

	t.Run("empty value key", func(t *testing.T) {
		assert.Empty(t, config.Get("empty"))
	})
}

func TestConfigGetWithDefault(t *testing.T) {
	config := NewConfig(map[string]string{
		"existing": "value",
		"empty":    "",
	})

	t.Run("existing key", func(t *testing.T) {
		got := config.GetWithDefault("existing", "default")
		assert.Equal(t, "value", got)
	})

	t.Run("non-existing key", func(t *testing.T) {
		got := config.GetWithDefault("missing", "default")
		assert.Equal(t, "default", got)
	})

	t.Run("empty value key", func(t *testing.T) {
		got := config.GetWithDefault("empty", "default")
		assert.Equal(t, "default", got)
	})
}

func TestConfigGetInt(t *testing.T) {
	config := NewConfig(map[string]string{
		"valid_int":   "42",
		"zero":        "0",
		"negative":    "-10",
		"invalid_int": "not_a_number",
		"empty":       "",
	})

	tests := []struct {
		key      string
		expected int
	}{
		{"valid_int", 42},
		{"zero", 0},
		{"negative", -10},
		{"invalid_int", 0},
		{"empty", 0},
		{"missing", 0},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			got := config.GetInt(test.key)
			assert.Equal(t, test.expected, got, "GetInt(%s)", test.key)
		})
	}
}

func TestConfigGetIntWithDefault(t *testing.T) {
	config := NewConfig(map[string]string{
		"valid_int": "42",
		"empty":     "",
	})

	t.Run("existing key", func(t *testing.T) {
		got := config.GetIntWithDefault("valid_int", 999)
		assert.Equal(t, 42, got)
	})

	t.Run("non-existing key", func(t *testing.T) {
		got := config.GetIntWithDefault("missing", 999)
		assert.Equal(t, 999, got)
	})

	t.Run("empty value key", func(t *testing.T) {
		got := config.GetIntWithDefault("empty", 999)
		assert.Equal(t, 0, got) // Expected 0 (parsed)
	})
}

func TestConfigSet(t *testing.T) {
	config := NewConfig(map[string]string{})

	config.Set("new_key", "new_value")
	assert.Equal(t, "new_value", config.Get("new_key"))

	// Test overwriting
	config.Set("new_key", "updated_value")
	assert.Equal(t, "updated_value", config.Get("new_key"))
}

func TestConfigHas(t *testing.T) {
	config := NewConfig(map[string]string{
		"existing": "value",
		"empty":    "",
	})

	assert.True(t, config.Has("existing"))
	assert.True(t, config.Has("empty"))
	assert.False(t, config.Has("missing"))
}
