package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/xrsl/reachout/pkg/ai"
	"github.com/xrsl/reachout/pkg/prompt"
	"github.com/xrsl/reachout/pkg/sheets"
)

// Mail transports.
const (
	TransportSMTP   = "smtp"
	TransportResend = "resend"
)

// ErrConfig marks settings that are missing or invalid.
var ErrConfig = errors.New("invalid configuration")

type Config struct {
	SheetID            string   `mapstructure:"sheet_id" env:"GOOGLE_SHEET_ID" validate:"required"`
	SheetRange         string   `mapstructure:"sheet_range" env:"GOOGLE_SHEET_RANGE" validate:"required"`
	Columns            []string `mapstructure:"columns"`
	ServiceAccountFile string   `mapstructure:"service_account_file" env:"GOOGLE_APPLICATION_CREDENTIALS" validate:"required"`

	Transport     string `mapstructure:"transport" env:"REACHOUT_TRANSPORT" validate:"oneof=smtp resend"`
	EmailUsername string `mapstructure:"email_username" env:"EMAIL_USERNAME"`
	EmailPassword string `mapstructure:"email_password" env:"EMAIL_PASSWORD"`
	SMTPHost      string `mapstructure:"smtp_host" env:"SMTP_HOST"`
	SMTPPort      int    `mapstructure:"smtp_port" env:"SMTP_PORT" validate:"gte=1,lte=65535"`
	ResendAPIKey  string `mapstructure:"resend_api_key" env:"RESEND_API_KEY"`
	FromAddress   string `mapstructure:"from_address" env:"EMAIL_FROM" validate:"omitempty,email"`
	FromName      string `mapstructure:"from_name" env:"EMAIL_FROM_NAME"`
	ReplyTo       string `mapstructure:"reply_to" env:"EMAIL_REPLY_TO" validate:"omitempty,email"`

	Agent           string `mapstructure:"agent" env:"REACHOUT_AGENT" validate:"required"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key" env:"OPENAI_API_KEY"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key" env:"GEMINI_API_KEY"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	PromptPath      string `mapstructure:"prompt_path"`

	CVPath         string `mapstructure:"cv_path" env:"CV_PATH" validate:"required"`
	AttachmentName string `mapstructure:"attachment_name" validate:"required"`

	StatusFile   string        `mapstructure:"status_file" env:"REACHOUT_STATUS_FILE" validate:"required"`
	MaxPerRun    int           `mapstructure:"max_per_run" env:"EMAILS_PER_DAY" validate:"gte=0"`
	SendInterval time.Duration `mapstructure:"send_interval" env:"REACHOUT_SEND_INTERVAL" validate:"gte=0"`
}

// Keys returns the provider API keys.
func (c *Config) Keys() ai.Keys {
	return ai.Keys{OpenAI: c.OpenAIAPIKey, Gemini: c.GeminiAPIKey, Anthropic: c.AnthropicAPIKey}
}

// Key describes one setting.
type Key struct {
	Name    string
	Env     string
	Default any
	// Secret settings come from the environment only and are never written
	// to the config file.
	Secret bool
}

var keys = []Key{
	{Name: "sheet_id", Env: "GOOGLE_SHEET_ID"},
	{Name: "sheet_range", Env: "GOOGLE_SHEET_RANGE", Default: sheets.DefaultRange},
	{Name: "columns", Default: sheets.DefaultColumns},
	{Name: "service_account_file", Env: "GOOGLE_APPLICATION_CREDENTIALS", Default: "service_account.json"},
	{Name: "transport", Env: "REACHOUT_TRANSPORT", Default: TransportSMTP},
	{Name: "email_username", Env: "EMAIL_USERNAME"},
	{Name: "email_password", Env: "EMAIL_PASSWORD", Secret: true},
	{Name: "smtp_host", Env: "SMTP_HOST", Default: "smtp.gmail.com"},
	{Name: "smtp_port", Env: "SMTP_PORT", Default: 587},
	{Name: "resend_api_key", Env: "RESEND_API_KEY", Secret: true},
	{Name: "from_address", Env: "EMAIL_FROM"},
	{Name: "from_name", Env: "EMAIL_FROM_NAME"},
	{Name: "reply_to", Env: "EMAIL_REPLY_TO"},
	{Name: "agent", Env: "REACHOUT_AGENT", Default: ai.DefaultAgent},
	{Name: "openai_api_key", Env: "OPENAI_API_KEY", Secret: true},
	{Name: "gemini_api_key", Env: "GEMINI_API_KEY", Secret: true},
	{Name: "anthropic_api_key", Env: "ANTHROPIC_API_KEY", Secret: true},
	{Name: "prompt_path", Default: prompt.DefaultPath},
	{Name: "cv_path", Env: "CV_PATH"},
	{Name: "attachment_name", Default: "CV.pdf"},
	{Name: "status_file", Env: "REACHOUT_STATUS_FILE", Default: "data/email_status.json"},
	{Name: "max_per_run", Env: "EMAILS_PER_DAY", Default: 10},
	{Name: "send_interval", Env: "REACHOUT_SEND_INTERVAL", Default: "30s"},
}

// Keys lists every known setting in display order.
func Keys() []Key {
	return append([]Key(nil), keys...)
}

func lookup(name string) (Key, bool) {
	for _, k := range keys {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

func keyNames() string {
	var names []string
	for _, k := range keys {
		if !k.Secret {
			names = append(names, k.Name)
		}
	}
	return strings.Join(names, ", ")
}

var (
	configFile = ".reachout.yaml"
	v          *viper.Viper
	validate   = newValidator()
)

func init() {
	v = newViper(configFile)
	// A broken file surfaces again in Load.
	_ = read()
}

func newViper(file string) *viper.Viper {
	nv := viper.New()
	nv.SetConfigFile(file)
	for _, k := range keys {
		if k.Default != nil {
			nv.SetDefault(k.Name, k.Default)
		}
		if k.Env != "" {
			_ = nv.BindEnv(k.Name, k.Env)
		}
	}
	return nv
}

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report problems by the environment variable the user is most likely to set.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		if env := f.Tag.Get("env"); env != "" {
			return env
		}
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})
	return val
}

func read() error {
	err := v.ReadInConfig()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("read %s: %w", configFile, err)
}

// Path returns the config file in use.
func Path() string {
	return configFile
}

// SetFile switches to another config file.
func SetFile(path string) error {
	configFile = path
	v = newViper(configFile)
	return read()
}

// Load resolves the configuration. The environment wins over the config file,
// which wins over defaults.
func Load() (*Config, error) {
	if err := read(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.FromAddress == "" {
		cfg.FromAddress = cfg.EmailUsername
	}
	if len(cfg.Columns) == 0 {
		cfg.Columns = sheets.DefaultColumns
	}
	return &cfg, nil
}

// Validate reports every missing or invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	switch c.Transport {
	case TransportSMTP:
		if c.EmailUsername == "" {
			problems = append(problems, "EMAIL_USERNAME is required for smtp transport")
		}
		if c.EmailPassword == "" {
			problems = append(problems, "EMAIL_PASSWORD is required for smtp transport")
		}
	case TransportResend:
		if c.ResendAPIKey == "" {
			problems = append(problems, "RESEND_API_KEY is required for resend transport")
		}
		if c.FromAddress == "" {
			problems = append(problems, "EMAIL_FROM is required for resend transport")
		}
	}

	if c.Agent != "" {
		if ai.ProviderOf(c.Agent) == ai.ProviderUnknown {
			problems = append(problems, fmt.Sprintf("unknown agent %q", c.Agent))
		} else if env := ai.KeyEnv(c.Agent); env != "" && c.Keys().KeyFor(c.Agent) == "" {
			problems = append(problems, fmt.Sprintf("%s is required for agent %s", env, c.Agent))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", fe.Field(), fe.Param(), fe.Value())
	case "email":
		return fmt.Sprintf("%s is not a valid email address: %q", fe.Field(), fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range: %v", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Get returns the resolved value of a setting. Secrets are masked.
func Get(key string) (string, error) {
	k, ok := lookup(key)
	if !ok {
		return "", fmt.Errorf("unknown config key: %s (valid: %s)", key, keyNames())
	}
	return display(k), nil
}

func display(k Key) string {
	if k.Name == "columns" {
		return strings.Join(v.GetStringSlice(k.Name), ",")
	}
	val := v.GetString(k.Name)
	if k.Secret {
		return Mask(val)
	}
	return val
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// All returns every resolved setting, secrets masked.
func All() map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k.Name] = display(k)
	}
	return out
}

// Set writes one setting to the config file.
func Set(key, value string) error {
	k, ok := lookup(key)
	if !ok {
		return fmt.Errorf("unknown config key: %s (valid: %s)", key, keyNames())
	}
	if k.Secret {
		return fmt.Errorf("%s is a secret; set %s in the environment or .env instead", key, k.Env)
	}
	parsed, err := parse(key, value)
	if err != nil {
		return err
	}

	values, err := fileValues()
	if err != nil {
		return err
	}
	values[key] = parsed
	if err := writeConfig(values); err != nil {
		return err
	}
	v.Set(key, parsed) // keep viper in sync
	return nil
}

func parse(key, value string) (any, error) {
	switch key {
	case "smtp_port", "max_per_run":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
		}
		return n, nil
	case "send_interval":
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("%s must be a duration like 30s, got %q", key, value)
		}
		return value, nil
	case "columns":
		var cols []string
		for _, c := range strings.Split(value, ",") {
			cols = append(cols, strings.TrimSpace(c))
		}
		return cols, nil
	case "transport":
		if value != TransportSMTP && value != TransportResend {
			return nil, fmt.Errorf("transport must be %s or %s, got %q", TransportSMTP, TransportResend, value)
		}
		return value, nil
	default:
		return value, nil
	}
}

// fileValues reads only what the config file itself holds, so environment
// values never leak into it.
func fileValues() (map[string]any, error) {
	values := map[string]any{}
	data, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configFile, err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func writeConfig(values map[string]any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(values); err != nil {
		return err
	}
	if dir := filepath.Dir(configFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(configFile, buf.Bytes(), 0o644)
}

// WriteDefaults creates the config file with every non-secret default and
// empty placeholders for required settings. An existing file is kept unless
// force is set.
func WriteDefaults(force bool) (bool, error) {
	if _, err := os.Stat(configFile); err == nil && !force {
		return false, nil
	}
	values := map[string]any{}
	for _, k := range keys {
		if k.Secret {
			continue
		}
		switch {
		case k.Default != nil:
			values[k.Name] = k.Default
		case k.Name == "sheet_id" || k.Name == "cv_path":
			values[k.Name] = ""
		}
	}
	if err := writeConfig(values); err != nil {
		return false, err
	}
	return true, read()
}

// Sorted returns setting names in alphabetical order.
func Sorted(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetForTest resets viper for testing (only use in tests)
func ResetForTest(testPath string) {
	configFile = filepath.Join(testPath, ".reachout.yaml")
	v = newViper(configFile)
}
