package logger_test

import (
	"bytes"
	"testing"

	"cartsync/pkg/config"
	"cartsync/pkg/lib/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		wantErr bool
	}{
		{name: "local", env: config.EnvLocal},
		{name: "dev", env: config.EnvDev},
		{name: "prod", env: config.EnvProd},
		{name: "unknown env", env: "staging", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := logger.SetupLogger(tt.env, &buf)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, log)
				return
			}
			require.NoError(t, err)
			log.Info("cart fetched", "items", 2)
			assert.Contains(t, buf.String(), "cart fetched")
		})
	}
}

func TestSetupLogger_ProdSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.SetupLogger(config.EnvProd, &buf)
	require.NoError(t, err)

	log.Debug("noisy")
	assert.Empty(t, buf.String())
}
