package configutil

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a configuration duration.
// It is a wrapper around time.Duration that implements the json, yaml and text
// (un)marshaler interfaces so it can be read from config files and environment variables.
//
//   - string is parsed using time.ParseDuration.
//   - int64 and float64 are interpreted as seconds.
type Duration time.Duration

// T returns the underlying time.Duration.
func (d Duration) T() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(*d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var a any
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	return d.decode(a)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var a any
	if err := value.Decode(&a); err != nil {
		return err
	}
	return d.decode(a)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	return d.decode(string(text))
}

// DurationHookFunc is a mapstructure decode hook that decodes strings
// and numbers into a Duration the same way config files do.
// Without it numbers would be taken as nanoseconds.
func DurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if data == nil || to != reflect.TypeOf(Duration(0)) {
			return data, nil
		}
		var d Duration
		switch v := reflect.ValueOf(data); v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			data = v.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			data = int64(v.Uint())
		case reflect.Float32:
			data = v.Float()
		}
		if err := d.decode(data); err != nil {
			return nil, err
		}
		return d, nil
	}
}

func (d *Duration) decode(a any) error {
	switch v := a.(type) {
	case string:
		dur, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(dur)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case int64:
		*d = Duration(time.Duration(v) * time.Second)
	default:
		return fmt.Errorf("invalid duration type %T: %v", v, v)
	}
	return nil
}
