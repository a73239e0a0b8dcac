package configs

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"go.minekube.com/yggdrasil/pkg/config"
)

func TestDefaultConfigMatchesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(DefaultConfigBytes)))
	fromFile, err := config.Load(v)
	require.NoError(t, err)

	d := viper.New()
	config.SetDefaults(d)
	defaults, err := config.Load(d)
	require.NoError(t, err)

	require.Equal(t, defaults, fromFile)
}
