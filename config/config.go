package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/00dev-org/llmpal/app_errors"
	"github.com/00dev-org/llmpal/constants/lipgloss"
)

const (
	OpenRouterURL         = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel          = "moonshotai/kimi-k2"
	DefaultPromptCost     = 0.60
	DefaultCompletionCost = 2.50
	DefaultMaxTokens      = 16384
	DefaultRequestTimeout = 10 * time.Minute
	DefaultTheme          = "dracula"
	APIKeyEnv             = "OPENROUTER_API_KEY"
	configName            = ".llmpal"
	envPrefix             = "LLMPAL"
)

// ModelConfig is one entry of the "models" array in .llmpal.json.
type ModelConfig struct {
	Code           string  `mapstructure:"code"`
	Model          string  `mapstructure:"model"`
	PromptCost     float64 `mapstructure:"prompt_cost"`
	CompletionCost float64 `mapstructure:"completion_cost"`
	APIURL         string  `mapstructure:"api_url"`
	APIKey         string  `mapstructure:"api_key"`
	MaxTokens      *int    `mapstructure:"max_tokens"`
	Provider       string  `mapstructure:"provider"`
}

// Config represents the structure of the configuration file merged with
// environment variables and CLI flags.
type Config struct {
	Models  []ModelConfig `mapstructure:"models"`
	Rules   []string      `mapstructure:"rules"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	Theme   string        `mapstructure:"theme"`

	// ConfigFileUsed is empty when no file was found.
	ConfigFileUsed string `mapstructure:"-"`
}

// ModelProfile is the resolved, immutable description of the model for a run.
type ModelProfile struct {
	Code           string
	Model          string
	Provider       string
	PromptCost     float64
	CompletionCost float64
	MaxTokens      *int
	APIURL         string
	APIKey         string
}

// MaxOutputTokens returns the configured ceiling or the default.
func (p ModelProfile) MaxOutputTokens() int {
	if p.MaxTokens != nil {
		return *p.MaxTokens
	}
	return DefaultMaxTokens
}

// Endpoint returns the custom endpoint or the OpenRouter default.
func (p ModelProfile) Endpoint() string {
	if p.APIURL != "" {
		return p.APIURL
	}
	return OpenRouterURL
}

// IsDefaultEndpoint reports whether no custom endpoint is configured.
func (p ModelProfile) IsDefaultEndpoint() bool {
	return p.APIURL == ""
}

// LoadOptions locates the configuration file.
type LoadOptions struct {
	// ConfigFile overrides the search when set.
	ConfigFile string
	Cwd        string
	Home       string
	// Flags bound over file and environment values; may be nil.
	Flags *pflag.FlagSet
}

// LoadConfigs reads .llmpal.{json,yaml} from the working directory, falling back
// to the home directory. A missing or unreadable file yields defaults; only an
// explicitly requested file that cannot be read is an error.
func LoadConfigs(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, app_errors.Wrap(app_errors.KindConfiguration, err, "error reading config file '%s'", opts.ConfigFile)
		}
	} else {
		v.SetConfigName(configName)
		if opts.Cwd != "" {
			v.AddConfigPath(opts.Cwd)
		}
		if opts.Home != "" {
			v.AddConfigPath(opts.Home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				fmt.Fprintln(os.Stderr, lipgloss.Yellow.Render(fmt.Sprintf("Ignoring invalid config file: %v", err)))
			}
			v = viper.New()
			setDefaults(v)
			bindEnv(v)
		}
	}

	if err := bindFlags(v, opts.Flags); err != nil {
		return nil, app_errors.Wrap(app_errors.KindConfiguration, err, "unable to bind flags")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, app_errors.Wrap(app_errors.KindConfiguration, err, "unable to decode config")
	}
	config.ConfigFileUsed = v.ConfigFileUsed()

	if config.Timeout < 0 {
		return nil, app_errors.New(app_errors.KindConfiguration, "timeout must not be negative, got %s", config.Timeout)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timeout", DefaultRequestTimeout)
	v.SetDefault("theme", DefaultTheme)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	_ = v.BindEnv("model")
	_ = v.BindEnv("timeout")
	_ = v.BindEnv("theme")
}

// bindFlags lets explicitly set CLI flags win over file and environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for _, name := range []string{"model", "timeout", "theme"} {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(name, flag); err != nil {
				return err
			}
		}
	}
	return nil
}

// selectedModelCode picks the requested code, then the first configured model,
// then the built-in default.
func (c *Config) selectedModelCode() string {
	if c.Model != "" {
		return c.Model
	}
	if len(c.Models) > 0 {
		return c.Models[0].Code
	}
	return DefaultModel
}

// ResolveModelProfile builds the run's ModelProfile. An unknown code keeps the
// code but falls back to the default model and prices. lookupEnv resolves
// "$NAME" api keys.
func (c *Config) ResolveModelProfile(lookupEnv func(string) (string, bool)) ModelProfile {
	code := c.selectedModelCode()
	profile := ModelProfile{
		Code:           code,
		Model:          DefaultModel,
		PromptCost:     DefaultPromptCost,
		CompletionCost: DefaultCompletionCost,
	}

	for _, m := range c.Models {
		if m.Code != code {
			continue
		}
		profile.Model = m.Model
		profile.PromptCost = m.PromptCost
		profile.CompletionCost = m.CompletionCost
		profile.APIURL = m.APIURL
		profile.MaxTokens = m.MaxTokens
		profile.Provider = m.Provider
		if m.APIKey != "" {
			profile.APIKey = resolveEnvToken(m.APIKey, lookupEnv)
		}
		break
	}

	return profile
}

// ResolveAPIKey returns the profile's key or the OPENROUTER_API_KEY variable.
func ResolveAPIKey(profile ModelProfile, lookupEnv func(string) (string, bool)) (string, error) {
	if profile.APIKey != "" {
		return profile.APIKey, nil
	}
	if key, ok := lookupEnv(APIKeyEnv); ok && key != "" {
		return key, nil
	}
	return "", app_errors.New(app_errors.KindConfiguration, "Missing %s env variable", APIKeyEnv)
}

// resolveEnvToken substitutes "$NAME" with the variable's value, leaving the
// token untouched when the variable is unset.
func resolveEnvToken(token string, lookupEnv func(string) (string, bool)) string {
	if !strings.HasPrefix(token, "$") {
		return token
	}
	if value, ok := lookupEnv(token[1:]); ok {
		return value
	}
	return token
}
