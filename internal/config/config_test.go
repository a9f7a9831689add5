package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, SourceSQL, cfg.DataSource.Kind)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "test_data", cfg.Dataset.Table)
	assert.Equal(t, 30*time.Second, cfg.Dataset.LoadTimeout)
	assert.Equal(t, []string{"ID"}, cfg.Prediction.ExcludeColumns)
	assert.Equal(t, 4, cfg.Prediction.MaxConcurrent)

	names := cfg.Prediction.OutputNames()
	require.Len(t, names, 10)
	assert.Equal(t, "Predicted_BlendProperty1", names[0])
	assert.Equal(t, "Predicted_BlendProperty10", names[9])
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATA_SOURCE_KIND", "CSV")
	t.Setenv("DATASET_FILE", "/data/test.csv")
	t.Setenv("DATASET_FILE_DELIMITER", `\t`)
	t.Setenv("PREDICTION_EXCLUDE_COLUMNS", "ID, Target ,")
	t.Setenv("PREDICTION_OUTPUT_NAMES", "P1,P2")
	t.Setenv("DATASET_LOAD_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, SourceCSV, cfg.DataSource.Kind)
	assert.Equal(t, '\t', cfg.Dataset.Delimiter)
	assert.Equal(t, []string{"ID", "Target"}, cfg.Prediction.ExcludeColumns)
	assert.Equal(t, []string{"P1", "P2"}, cfg.Prediction.OutputNames())
	assert.Equal(t, 5*time.Second, cfg.Dataset.LoadTimeout)
}

func TestLoad_PostgresKindUsesPostgresDSN(t *testing.T) {
	t.Setenv("DATA_SOURCE_KIND", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Contains(t, cfg.Database.DSN(), "port=5432")
}

func TestLoad_DatabasePortDefaultsByDriver(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want int
	}{
		{"mysql default", map[string]string{}, 3306},
		{"sql over postgres", map[string]string{"DATABASE_DRIVER": "postgres"}, 5432},
		{"explicit port wins", map[string]string{"DATA_SOURCE_KIND": "postgres", "DATABASE_PORT": "6543"}, 6543},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Database.Port)
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("MODEL_PATH: /models/blend.json.gz\nPREDICTION_OUTPUT_COUNT: 3\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PREDICTION_OUTPUT_COUNT", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/models/blend.json.gz", cfg.Model.Path)
	assert.Len(t, cfg.Prediction.OutputNames(), 2)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown kind", map[string]string{"DATA_SOURCE_KIND": "redis"}, "DATA_SOURCE_KIND"},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "oracle"}, "DATABASE_DRIVER"},
		{"injected table", map[string]string{"DATASET_TABLE": "test_data; DROP TABLE x"}, "DATASET_TABLE"},
		{"csv without file", map[string]string{"DATA_SOURCE_KIND": "csv"}, "DATASET_FILE"},
		{"zero concurrency", map[string]string{"PREDICTION_MAX_CONCURRENT": "0"}, "PREDICTION_MAX_CONCURRENT"},
		{"bad timeout", map[string]string{"DATASET_LOAD_TIMEOUT": "soon"}, "DATASET_LOAD_TIMEOUT"},
		{"bad delimiter", map[string]string{"DATASET_FILE_DELIMITER": ";;"}, "DATASET_FILE_DELIMITER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "root", Password: "pw", Name: "cts"}
	assert.Equal(t, "root:pw@tcp(db:3306)/cts?parseTime=true", d.DSN())

	d = DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "cts", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cts sslmode=disable", d.DSN())

	d.URL = "postgres://u:p@db/cts"
	assert.Equal(t, "postgres://u:p@db/cts", d.DSN())
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTable("test_data"))
	assert.NoError(t, validateTable("cts.test_data"))
	assert.Error(t, validateTable("1table"))
	assert.Error(t, validateTable("a.b.c"))
	assert.Error(t, validateTable(""))
}
