// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/elpelech/kagglehub/sdk/utils"
)

// Settings holds all logical configuration keys. Tags:
// - vkey: Viper key
// - env: canonical env name (UPPER_SNAKE). If empty, derived from vkey
// - persist: "true" to write the key into the INI
// - default: optional default to set if key is unset
// - secret: "true" if sensitive (kept out of any dump/log output)
type Settings struct {
	Username    string `vkey:"kaggle_username"     env:"KAGGLE_USERNAME"     persist:"true" secret:"true"`
	Key         string `vkey:"kaggle_key"          env:"KAGGLE_KEY"          persist:"true" secret:"true"`
	ApiEndpoint string `vkey:"kaggle_api_endpoint" env:"KAGGLE_API_ENDPOINT" persist:"true" default:"https://www.kaggle.com/api/v1"`
	CacheRoot   string `vkey:"kagglehub_cache"     env:"KAGGLEHUB_CACHE"     persist:"true"`

	// Notebook environment markers; read-only, never persisted.
	KernelRunType   string `vkey:"kaggle_kernel_run_type" env:"KAGGLE_KERNEL_RUN_TYPE" persist:"false"`
	KaggleInputRoot string `vkey:"kaggle_input_root"      env:"KAGGLE_INPUT_ROOT"      persist:"false" default:"/kaggle/input"`
	ColabReleaseTag string `vkey:"colab_release_tag"      env:"COLAB_RELEASE_TAG"      persist:"false"`
	ColabInputRoot  string `vkey:"colab_input_root"       env:"COLAB_INPUT_ROOT"       persist:"false" default:"/kaggle/input"`

	// Optional S3-compatible mirror.
	MirrorEndpoint  string `vkey:"kagglehub_mirror_endpoint"   env:"KAGGLEHUB_MIRROR_ENDPOINT"   persist:"true"`
	MirrorBucket    string `vkey:"kagglehub_mirror_bucket"     env:"KAGGLEHUB_MIRROR_BUCKET"     persist:"true"`
	MirrorRegion    string `vkey:"kagglehub_mirror_region"     env:"KAGGLEHUB_MIRROR_REGION"     persist:"true"`
	MirrorAccessKey string `vkey:"kagglehub_mirror_access_key" env:"KAGGLEHUB_MIRROR_ACCESS_KEY" persist:"true" secret:"true"`
	MirrorSecretKey string `vkey:"kagglehub_mirror_secret_key" env:"KAGGLEHUB_MIRROR_SECRET_KEY" persist:"true" secret:"true"`

	CurrentEnvironment string `vkey:"current_environment" env:"CURRENT_ENVIRONMENT" persist:"false"`
}

func IniPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return home + string(os.PathSeparator) + utils.IniName
}

// resolveEnvName: --env > "default"
func resolveEnvName(optionalEnv ...string) string {
	if len(optionalEnv) > 0 && optionalEnv[0] != "" && !strings.EqualFold(optionalEnv[0], "null") {
		return optionalEnv[0]
	}
	return "default"
}

// BindEnvFromStruct binds env vars for all fields of Settings using struct tags.
func BindEnvFromStruct() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	rt := reflect.TypeOf(Settings{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)

		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}

		env := f.Tag.Get("env")
		if env == "" {
			env = strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
		_ = viper.BindEnv(key, env)

		if def := f.Tag.Get("default"); def != "" && !viper.IsSet(key) {
			viper.SetDefault(key, def)
		}
	}
}

// WriteIniFromStruct writes a new INI holding only fields marked persist:"true".
func WriteIniFromStruct(iniPath, envName string) error {
	cfg := ini.Empty()
	cfg.Section("DEFAULT").Key(utils.CurrentEnvironment).SetValue(envName)
	sec := cfg.Section(envName)

	rt := reflect.TypeOf(Settings{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Tag.Get("persist") != "true" {
			continue
		}
		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}
		val := viper.GetString(key)
		if val == "" {
			continue
		}
		sec.Key(key).SetValue(val)
	}

	return cfg.SaveTo(iniPath)
}

// UpdateIniFromStruct updates (or creates) an INI section from current Viper
// values, persist:"true" keys only.
func UpdateIniFromStruct(iniPath, envName string) error {
	cfg, err := ini.Load(iniPath)
	if err != nil {
		return WriteIniFromStruct(iniPath, envName)
	}
	sec := cfg.Section(envName)

	rt := reflect.TypeOf(Settings{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Tag.Get("persist") != "true" {
			continue
		}
		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}
		val := viper.GetString(key)
		if val == "" {
			continue
		}
		sec.Key(key).SetValue(val)
	}

	if !cfg.Section("DEFAULT").HasKey(utils.CurrentEnvironment) {
		cfg.Section("DEFAULT").Key(utils.CurrentEnvironment).SetValue(envName)
	}
	sec.Key(utils.UpdatedEnvKey).SetValue(time.Now().UTC().Format(time.RFC3339))
	return cfg.SaveTo(iniPath)
}

// loadIniSectionIntoViper merges [DEFAULT] + [env] into Viper (TOML
// in-memory). ENV can still override on Get().
func loadIniSectionIntoViper(cfg *ini.File, env string) error {
	def := cfg.Section("DEFAULT")
	selected := def
	if env != "" && cfg.HasSection(env) {
		selected = cfg.Section(env)
	}

	merged := make(map[string]string)
	for _, k := range def.Keys() {
		merged[k.Name()] = k.Value()
	}
	if selected != def {
		for _, k := range selected.Keys() {
			merged[k.Name()] = k.Value()
		}
	}

	var buf bytes.Buffer
	for k, v := range merged {
		vSafe := strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`)
		_, _ = fmt.Fprintf(&buf, "%s = \"%s\"\n", k, vSafe)
	}
	viper.SetConfigType("toml")
	return viper.ReadConfig(&buf)
}

// RegisterIniCfgWithViper:
// 1) bind ENV from struct (live)
// 2) load the INI if present
// 3) load the active section into Viper and set current_environment
// A missing INI is not an error: env-only operation is the common case on
// hosted notebooks.
func RegisterIniCfgWithViper(optionalEnv ...string) error {
	iniPath := IniPath()

	BindEnvFromStruct()

	cfg, err := ini.Load(iniPath)
	if err != nil {
		viper.Set(utils.CurrentEnvironment, resolveEnvName(optionalEnv...))
		return nil
	}

	// active env: --env > DEFAULT.current_environment > default
	env := resolveEnvName(optionalEnv...)
	if env == "default" {
		if v := cfg.Section("DEFAULT").Key(utils.CurrentEnvironment).String(); v != "" {
			env = v
		}
	}

	if err := loadIniSectionIntoViper(cfg, env); err != nil {
		return fmt.Errorf("failed to load INI into viper: %w", err)
	}
	viper.Set(utils.CurrentEnvironment, env)
	return nil
}

// LoadConfig registers env/INI settings and materializes the Config value
// used by the services.
func LoadConfig(optionalEnv ...string) (Config, error) {
	if err := RegisterIniCfgWithViper(optionalEnv...); err != nil {
		return Config{}, err
	}
	return ConfigFromViper(), nil
}

// ConfigFromViper snapshots the current Viper state. Split out so tests can
// seed Viper directly without touching the INI on disk.
func ConfigFromViper() Config {
	mirror := MirrorConfig{
		EndpointURL: viper.GetString(utils.MirrorEndpoint),
		Bucket:      viper.GetString(utils.MirrorBucket),
		Region:      viper.GetString(utils.MirrorRegion),
		AccessKey:   viper.GetString(utils.MirrorAccessKey),
		SecretKey:   viper.GetString(utils.MirrorSecretKey),
	}
	cacheRoot := viper.GetString(utils.KagglehubCache)
	if cacheRoot == "" {
		cacheRoot = DefaultCacheRoot()
	}
	return Config{
		Api: ApiConfig{
			BaseURL:  viper.GetString(utils.KaggleApiEndpoint),
			Username: viper.GetString(utils.KaggleUsername),
			Key:      viper.GetString(utils.KaggleKey),
		},
		Mirror: mirror,
		Env: Environment{
			CacheRoot:       cacheRoot,
			KernelRunType:   viper.GetString(utils.KernelRunType),
			KaggleInputRoot: viper.GetString(utils.KaggleInputRoot),
			ColabReleaseTag: viper.GetString(utils.ColabReleaseTag),
			ColabInputRoot:  viper.GetString(utils.ColabInputRoot),
			Mirror:          mirror,
		},
	}
}
