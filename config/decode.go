package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode maps a generic config map (a viper sub-tree or a provider factory
// config) onto out using mapstructure tags. Strings like "30s" decode into
// time.Duration and numeric strings into numbers.
func Decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("config: decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("config: decode: %w", err)
	}
	return nil
}
