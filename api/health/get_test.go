package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/cropsight/api/types"
	"github.com/verdantlabs/cropsight/internal/database"
)

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		setupDeps  func() *types.Dependencies
		expectedDB string
	}{
		{
			name: "healthy with database",
			setupDeps: func() *types.Dependencies {
				db, err := database.Initialize(":memory:", false)
				require.NoError(t, err)
				return &types.Dependencies{DB: db}
			},
			expectedDB: "healthy",
		},
		{
			name: "no database configured",
			setupDeps: func() *types.Dependencies {
				return &types.Dependencies{}
			},
			expectedDB: "not configured",
		},
		{
			name: "unhealthy with closed database",
			setupDeps: func() *types.Dependencies {
				db, err := database.Initialize(":memory:", false)
				require.NoError(t, err)

				sqlDB, err := db.DB.DB()
				require.NoError(t, err)
				require.NoError(t, sqlDB.Close())

				return &types.Dependencies{DB: db}
			},
			expectedDB: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			RegisterRoutes(engine, tt.setupDeps())

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "ok", body["status"])
			assert.NotEmpty(t, body["timestamp"])

			dbStatus, ok := body["database"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.expectedDB, dbStatus["status"])
		})
	}
}
