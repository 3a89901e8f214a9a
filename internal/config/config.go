package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-translit/internal/rules"
	"github.com/example/go-translit/internal/symtab"
	"github.com/example/go-translit/internal/tokenizer"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Translit TranslitConfig `mapstructure:"translit"`
	Lexicon  LexiconConfig  `mapstructure:"lexicon"`
	Server   ServerConfig   `mapstructure:"server"`
	Speech   SpeechConfig   `mapstructure:"speech"`
}

type TranslitConfig struct {
	Method          string   `mapstructure:"method"`
	OnUnknown       string   `mapstructure:"on_unknown"`
	ChunkSize       int      `mapstructure:"chunk_size"`
	BufferSoftLimit int      `mapstructure:"buffer_soft_limit"`
	Table           string   `mapstructure:"table"`
	Rules           []string `mapstructure:"rules"`
	StressMark      string   `mapstructure:"stress_mark"`
}

type LexiconConfig struct {
	DictPath string `mapstructure:"dict_path"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type SpeechConfig struct {
	EspeakPath string  `mapstructure:"espeak_path"`
	Voice      string  `mapstructure:"voice"`
	Normalize  bool    `mapstructure:"normalize"`
	DCBlock    bool    `mapstructure:"dc_block"`
	FadeInMS   float64 `mapstructure:"fade_in_ms"`
	FadeOutMS  float64 `mapstructure:"fade_out_ms"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// flagKeys maps every config key to the flag that overrides it.
var flagKeys = []struct{ key, flag string }{
	{"log_level", "log-level"},
	{"translit.method", "method"},
	{"translit.on_unknown", "on-unknown"},
	{"translit.chunk_size", "chunk-size"},
	{"translit.buffer_soft_limit", "buffer-soft-limit"},
	{"translit.table", "table"},
	{"translit.rules", "rules"},
	{"translit.stress_mark", "stress-mark"},
	{"lexicon.dict_path", "dict"},
	{"server.listen_addr", "server-listen-addr"},
	{"server.workers", "workers"},
	{"server.max_text_bytes", "max-text-bytes"},
	{"server.request_timeout", "request-timeout"},
	{"server.shutdown_timeout", "shutdown-timeout"},
	{"speech.espeak_path", "espeak-path"},
	{"speech.voice", "voice"},
	{"speech.normalize", "normalize"},
	{"speech.dc_block", "dc-block"},
	{"speech.fade_in_ms", "fade-in-ms"},
	{"speech.fade_out_ms", "fade-out-ms"},
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Translit: TranslitConfig{
			Method:          string(tokenizer.Max),
			OnUnknown:       symtab.KeepOriginal.String(),
			ChunkSize:       256,
			BufferSoftLimit: 1024,
			Table:           symtab.PresetJubrish,
			Rules:           []string{},
			StressMark:      "",
		},
		Lexicon: LexiconConfig{
			DictPath: "data/pronunciations.csv",
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			MaxTextBytes:    64 * 1024,
			RequestTimeout:  30,
			ShutdownTimeout: 30,
		},
		Speech: SpeechConfig{
			EspeakPath: "",
			Voice:      "en-us",
			Normalize:  false,
			DCBlock:    false,
			FadeInMS:   0,
			FadeOutMS:  0,
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("method", defaults.Translit.Method, "Symbol grouping method (max|min)")
	fs.String("on-unknown", defaults.Translit.OnUnknown, "Unknown symbol policy (keep_original|fail)")
	fs.Int("chunk-size", defaults.Translit.ChunkSize, "Input chunk size in bytes")
	fs.Int("buffer-soft-limit", defaults.Translit.BufferSoftLimit, "Buffered token count that triggers a warning (0 = unbounded)")
	fs.String("table", defaults.Translit.Table, "Symbol table preset name or table file path")
	fs.StringSlice("rules", defaults.Translit.Rules, "Ordered built-in rules to apply (comma separated)")
	fs.String("stress-mark", defaults.Translit.StressMark, "Glyph appended after stressed symbols (overrides the table)")
	fs.String("dict", defaults.Lexicon.DictPath, "Pronunciation dictionary CSV")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent transliteration requests")
	fs.Int("max-text-bytes", defaults.Server.MaxTextBytes, "Max request body size in bytes")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
	fs.String("espeak-path", defaults.Speech.EspeakPath, "Path to espeak-ng executable")
	fs.String("voice", defaults.Speech.Voice, "espeak-ng voice")
	fs.Bool("normalize", defaults.Speech.Normalize, "Peak-normalize synthesized audio")
	fs.Bool("dc-block", defaults.Speech.DCBlock, "Apply DC-block high-pass filter to synthesized audio")
	fs.Float64("fade-in-ms", defaults.Speech.FadeInMS, "Linear fade-in duration in milliseconds")
	fs.Float64("fade-out-ms", defaults.Speech.FadeOutMS, "Linear fade-out duration in milliseconds")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("TRANSLIT")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("speech.espeak_path", "TRANSLIT_SPEECH_ESPEAK_PATH", "ESPEAK_NG_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind espeak env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("translit")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// Validate reports every invalid setting in c.
func Validate(c Config) error {
	var errs []error

	if _, err := tokenizer.ParseMethod(c.Translit.Method); err != nil {
		errs = append(errs, err)
	}
	if _, err := symtab.ParsePolicy(c.Translit.OnUnknown); err != nil {
		errs = append(errs, err)
	}
	if _, err := rules.Parse(c.Translit.Rules); err != nil {
		errs = append(errs, err)
	}
	if c.Translit.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("translit.chunk_size must be > 0, got %d", c.Translit.ChunkSize))
	}
	if c.Translit.BufferSoftLimit < 0 {
		errs = append(errs, fmt.Errorf("translit.buffer_soft_limit must be >= 0, got %d", c.Translit.BufferSoftLimit))
	}
	if c.Server.Workers <= 0 {
		errs = append(errs, fmt.Errorf("server.workers must be > 0, got %d", c.Server.Workers))
	}
	if c.Server.MaxTextBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_text_bytes must be > 0, got %d", c.Server.MaxTextBytes))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout must be > 0, got %d", c.Server.RequestTimeout))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be > 0, got %d", c.Server.ShutdownTimeout))
	}
	if c.Speech.FadeInMS < 0 || c.Speech.FadeOutMS < 0 {
		errs = append(errs, errors.New("speech fade durations must be >= 0"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("translit.method", c.Translit.Method)
	v.SetDefault("translit.on_unknown", c.Translit.OnUnknown)
	v.SetDefault("translit.chunk_size", c.Translit.ChunkSize)
	v.SetDefault("translit.buffer_soft_limit", c.Translit.BufferSoftLimit)
	v.SetDefault("translit.table", c.Translit.Table)
	v.SetDefault("translit.rules", c.Translit.Rules)
	v.SetDefault("translit.stress_mark", c.Translit.StressMark)
	v.SetDefault("lexicon.dict_path", c.Lexicon.DictPath)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("speech.espeak_path", c.Speech.EspeakPath)
	v.SetDefault("speech.voice", c.Speech.Voice)
	v.SetDefault("speech.normalize", c.Speech.Normalize)
	v.SetDefault("speech.dc_block", c.Speech.DCBlock)
	v.SetDefault("speech.fade_in_ms", c.Speech.FadeInMS)
	v.SetDefault("speech.fade_out_ms", c.Speech.FadeOutMS)
}

// bindFlags binds each registered flag to its nested config key, so a flag
// only wins over the config file and environment when it was set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(fk.key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", fk.flag, err)
		}
	}
	return nil
}
