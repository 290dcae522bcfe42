package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "GIN_MODE", "LOG_LEVEL", "APP_ID", "STORE_BACKEND",
		"FIREBASE_PROJECT_ID", "FIREBASE_CREDS_BASE64", "FIREBASE_CREDS_FILE", "FIRESTORE_EMULATOR_HOST",
		"MONGO_URI", "MONGO_DB", "REDIS_ADDR", "REDIS_PASSWORD", "CACHE_TTL",
		"BLOB_BACKEND", "GCS_BUCKET", "UPLOAD_DIR", "PUBLIC_BASE_URL",
		"ADMIN_PASSWORD", "TOKEN_TTL", "ALLOWED_ORIGINS", "RECONCILE_WORKERS",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_BACKEND", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "default-app-id", cfg.AppID)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, BlobLocal, cfg.BlobBackend)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.ReconcileWorkers)
	assert.Equal(t, "myroom", cfg.MongoDB)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing jwt secret", env: map[string]string{"JWT_SECRET": ""}, wantErr: "JWT_SECRET"},
		{name: "firestore needs project", env: map[string]string{"STORE_BACKEND": "firestore"}, wantErr: "FIREBASE_PROJECT_ID"},
		{name: "firestore needs creds", env: map[string]string{"STORE_BACKEND": "firestore", "FIREBASE_PROJECT_ID": "p"}, wantErr: "FIREBASE_CREDS"},
		{name: "mongo needs uri", env: map[string]string{"STORE_BACKEND": "mongo"}, wantErr: "MONGO_URI"},
		{name: "unknown backend", env: map[string]string{"STORE_BACKEND": "sqlite"}, wantErr: "STORE_BACKEND"},
		{name: "gcs needs bucket", env: map[string]string{"BLOB_BACKEND": "gcs"}, wantErr: "GCS_BUCKET"},
		{name: "bad ttl", env: map[string]string{"CACHE_TTL": "soon"}, wantErr: "CACHE_TTL"},
		{name: "bad workers", env: map[string]string{"RECONCILE_WORKERS": "0"}, wantErr: "RECONCILE_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFirestoreEmulatorNeedsNoCreds(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_BACKEND", "firestore")
	t.Setenv("FIREBASE_PROJECT_ID", "demo-myroom")
	t.Setenv("FIRESTORE_EMULATOR_HOST", "localhost:8081")

	_, err := Load()
	assert.NoError(t, err)
}

func TestFirebaseCredentialsJSON(t *testing.T) {
	cfg := Config{FirebaseCredsBase64: base64.StdEncoding.EncodeToString([]byte(`{"type":"service_account"}`))}
	data, source, err := cfg.FirebaseCredentialsJSON()
	require.NoError(t, err)
	assert.Equal(t, "base64", source)
	assert.JSONEq(t, `{"type":"service_account"}`, string(data))

	_, _, err = Config{FirebaseCredsBase64: "%%%"}.FirebaseCredentialsJSON()
	assert.Error(t, err)
	_, _, err = Config{}.FirebaseCredentialsJSON()
	assert.Error(t, err)
}

func TestOrigins(t *testing.T) {
	cfg := Config{AllowedOrigins: " https://a.example.com, ,http://localhost:5173 "}
	assert.Equal(t, []string{"https://a.example.com", "http://localhost:5173"}, cfg.Origins())
	assert.Nil(t, Config{}.Origins())
}

func TestLoadStoreSkipsServerSettings(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BLOB_BACKEND", "gcs")

	cfg, err := LoadStore()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)

	t.Setenv("STORE_BACKEND", "mongo")
	_, err = LoadStore()
	assert.ErrorContains(t, err, "MONGO_URI")
}
