package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/a-peyrard/godi-datasource"
	"github.com/a-peyrard/godi-datasource/inject"
	"github.com/a-peyrard/godi-datasource/option"
	"github.com/a-peyrard/godi-datasource/set"
	"github.com/a-peyrard/godi-datasource/str"
	"github.com/spf13/viper"
)

type (
	// Config represents a configuration instance backed by Viper
	Config struct {
		*viper.Viper

		names []string
	}

	Options struct {
		prefix string
		file   string
		names  []string
	}
)

func WithEnvPrefix(prefix string) option.Option[Options] {
	return func(opts *Options) {
		opts.prefix = prefix
	}
}

// WithFile reads the configuration from a file, any format viper supports.
func WithFile(path string) option.Option[Options] {
	return func(opts *Options) {
		opts.file = path
	}
}

// WithDataSources declares data sources whose slots can be set through environment variables only.
func WithDataSources(names ...string) option.Option[Options] {
	return func(opts *Options) {
		opts.names = append(opts.names, names...)
	}
}

// Load reads the configuration file, if any, and binds the environment variables of every declared data source.
//
// The environment variable of a slot is the prefix followed by its key in SCREAMING_SNAKE_CASE, so that
// datasource.orders-db.pool_max is read from APP_DATASOURCE_ORDERS_DB_POOL_MAX. Names such as orders-db, orders_db
// and ordersDb share the same variables: Load fails when two data sources would be read from the same variable.
// Data source names only found in the configuration file come out lowercased, since viper lowercases its keys.
func Load(opts ...option.Option[Options]) (*Config, error) {
	options := option.Build(&Options{}, opts...)

	v := viper.New()
	v.SetEnvPrefix(options.prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if options.file != "" {
		v.SetConfigFile(options.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file %s: %w", options.file, err)
		}
	}

	conf := &Config{Viper: v}
	conf.names = mergeNames(options.names, namesFromSettings(v))

	envOwners := make(map[string]string)
	for _, name := range conf.names {
		keys, err := datasource.DeriveKeys(name)
		if err != nil {
			return nil, err
		}
		for _, slot := range datasource.Slots() {
			if slot == datasource.SlotUnique {
				continue
			}
			key := keys.For(slot)
			env := str.EnvName(options.prefix, key)
			if owner, found := envOwners[env]; found {
				return nil, &datasource.ConfigError{
					Resource: name,
					Slot:     slot,
					Err: fmt.Errorf("%w: environment variable %s is already read by data source %q",
						datasource.ErrInvalidConfiguration, env, owner),
				}
			}
			envOwners[env] = name
			if err := v.BindEnv(key, env); err != nil {
				return nil, fmt.Errorf("unable to bind env for %s: %w", key, err)
			}
		}
	}

	return conf, nil
}

// DataSourceNames returns the declared data sources, then the ones only found in the configuration file.
// The latter are lowercased: a file declaring Orders-DB yields orders-db.
func (c *Config) DataSourceNames() []string {
	return slices.Clone(c.names)
}

// Module binds the configuration as container constants: every leaf setting, plus the slots of every data source.
//
// A data source without properties gets an empty set of properties.
func (c *Config) Module() inject.Module {
	return inject.ModuleFunc(func(b inject.Binder) error {
		bound := set.New[string]()

		for _, name := range c.names {
			keys, err := datasource.DeriveKeys(name)
			if err != nil {
				return err
			}
			for _, slot := range datasource.Slots() {
				key := keys.For(slot)
				if slot == datasource.SlotUnique || !c.IsSet(key) {
					continue
				}
				if err := b.BindConstant(key, c.Get(key)); err != nil {
					return err
				}
				bound.Add(strings.ToLower(key))
			}
			if !bound.Contains(strings.ToLower(keys.Properties)) {
				if err := b.BindConstant(keys.Properties, datasource.Properties{}); err != nil {
					return err
				}
				bound.Add(strings.ToLower(keys.Properties))
			}
		}

		for _, key := range c.AllKeys() {
			val := c.Get(key)
			if bound.Contains(key) || val == nil {
				continue
			}
			if err := b.BindConstant(key, val); err != nil {
				return err
			}
		}
		return nil
	})
}

func namesFromSettings(v *viper.Viper) []string {
	sources := v.GetStringMap(datasource.KeyPrefix)
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// mergeNames keeps the declared names first, in order, then the other names. Names are compared ignoring case,
// since viper keys are case-insensitive.
func mergeNames(declared []string, found []string) []string {
	seen := set.New[string]()
	names := make([]string, 0, len(declared)+len(found))
	for _, name := range append(slices.Clone(declared), found...) {
		if seen.Contains(strings.ToLower(name)) {
			continue
		}
		seen.Add(strings.ToLower(name))
		names = append(names, name)
	}
	return names
}
