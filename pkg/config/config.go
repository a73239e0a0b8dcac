// Package config contains the configuration for talking to the
// Yggdrasil authentication and session servers.
package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"go.minekube.com/yggdrasil/pkg/util/configutil"
	"go.minekube.com/yggdrasil/pkg/util/errs"
	"go.minekube.com/yggdrasil/pkg/util/validation"
)

const (
	DefaultAuthServerURL    = "https://authserver.mojang.com"
	DefaultSessionServerURL = "https://sessionserver.mojang.com"
	DefaultTimeout          = 10 * time.Second
)

// Config is the configuration of a Yggdrasil client or server.
type Config struct {
	// Base URL of the authentication server (authenticate, refresh, validate, signout, invalidate).
	AuthServerURL configutil.URL `yaml:"authServerURL" json:"authServerURL"`
	// Base URL of the session server (join, hasJoined).
	SessionServerURL configutil.URL `yaml:"sessionServerURL" json:"sessionServerURL"`
	// Timeout of a single request to either server.
	Timeout configutil.Duration `yaml:"timeout" json:"timeout"`
	// Whether authenticate and refresh requests ask for the user object.
	RequestUser bool `yaml:"requestUser" json:"requestUser"`
	// Sends the connecting client's ip with hasJoined requests so
	// the session server can refuse clients joining through a proxy.
	PreventProxyConnections bool `yaml:"preventProxyConnections" json:"preventProxyConnections"`

	Debug bool `yaml:"debug" json:"debug"`
}

// SetDefaults sets Config defaults used with Viper.
func SetDefaults(i configutil.SetDefault) {
	i.SetDefault("authServerURL", DefaultAuthServerURL)
	i.SetDefault("sessionServerURL", DefaultSessionServerURL)
	i.SetDefault("timeout", DefaultTimeout.String())
	i.SetDefault("requestUser", false)
	i.SetDefault("preventProxyConnections", false)
	i.SetDefault("debug", false)
}

// Load decodes the Config from v.
// SetDefaults should have been called on v before.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, errs.ErrMissingConfig
	}
	var c Config
	err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		configutil.DurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return &c, nil
}

// Validate validates Config.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...interface{}) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...interface{}) { warns = append(warns, fmt.Errorf(m, args...)) }

	if c == nil {
		e("config must not be nil")
		return
	}

	for name, u := range map[string]*configutil.URL{
		"authServerURL":    &c.AuthServerURL,
		"sessionServerURL": &c.SessionServerURL,
	} {
		if err := validation.ValidHTTPURL(u.String()); err != nil {
			e("Invalid %s %q: %v", name, u.String(), err)
			continue
		}
		if u.Scheme != "https" {
			w("%s %q does not use https, credentials and tokens are sent in plain text!", name, u.String())
		}
	}

	if c.Timeout < 0 {
		e("Invalid timeout %s: must be >= 0", c.Timeout)
	} else if c.Timeout == 0 {
		w("Timeout is 0, requests to the Yggdrasil servers never time out.")
	}

	return
}
