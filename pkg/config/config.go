// Package config loads the pipeline configuration: compiled defaults,
// overridden by an optional JSON5 file, overridden by LORO_* env vars.
// Unknown file keys are ignored.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/titanous/json5"
)

// WOL names a wake-on-LAN target reachable by a computed rule response.
type WOL struct {
	MACAddress string `json:"macAddress" env:"WOL_MAC"`
	Broadcast  string `json:"broadcast" env:"WOL_BROADCAST"`
}

// Bind is one {queue, pattern} entry of the sorter's topology table.
type Bind struct {
	Queue   string `json:"queue"`
	Pattern string `json:"pattern"`
}

// Config holds every named option the workers read.
type Config struct {
	BrokerURL  string `json:"brokerURL" env:"BROKER_URL"`
	Exchange   string `json:"exchange" env:"EXCHANGE"`
	InputQueue string `json:"inputQueue" env:"INPUT_QUEUE"`
	SendQueue  string `json:"sendQueue" env:"SEND_QUEUE"`

	// Queue and bind pattern of the rule engine.
	RulesQueue   string `json:"rulesQueue" env:"RULES_QUEUE"`
	RulesPattern string `json:"rulesPattern" env:"RULES_PATTERN"`

	// Queue of the wisdom responder; fed by the prompt bind.
	PromptQueue string `json:"promptQueue" env:"PROMPT_QUEUE"`

	WakeWord  string `json:"wakeWord" env:"WAKE_WORD"`
	RulesFile string `json:"rulesFile" env:"RULES_FILE"`

	// Backend service URL for the transcription worker.
	WhisperURL string `json:"whisperURL" env:"WHISPER_URL"`

	LogDir   string `json:"logDir" env:"LOG_DIR"`
	MediaDir string `json:"mediaDir" env:"MEDIA_DIR"`

	// Groups the bot is allowed to reply into; replies to other groups are
	// redirected to the sender.
	ValidGroups []string `json:"validGroups" env:"VALID_GROUPS"`

	// Chats the rule engine ignores entirely.
	DisabledChats []string `json:"disabledChats" env:"DISABLED_CHATS"`

	// Sorter topology; empty means DefaultBinds.
	Binds []Bind `json:"binds"`

	WOL WOL `json:"wol"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		BrokerURL:    "amqp://queue:5672",
		Exchange:     "msgex",
		InputQueue:   "pre_process",
		SendQueue:    "send",
		RulesQueue:   "zoa",
		RulesPattern: "msg.#",
		PromptQueue:  "prompt",
		WakeWord:     "loro",
		RulesFile:    "rules.json5",
		WhisperURL:   "http://whisper:8099/inference",
		LogDir:       "log",
		MediaDir:     "media",
	}
}

// DefaultBinds is the standard queue topology: everything is logged and
// persisted, prompts, media, and voice notes each get a dedicated queue.
func DefaultBinds() []Bind {
	return []Bind{
		{Queue: "log", Pattern: "msg.#"},
		{Queue: "persist", Pattern: "msg.#"},
		{Queue: "prompt", Pattern: "msg.prompt.#"},
		{Queue: "download", Pattern: "msg.#.media"},
		{Queue: "transcribe", Pattern: "msg.#.transcribe"},
	}
}

// Load reads path (missing file is fine), then overlays env vars.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "LORO_"}); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	if len(cfg.Binds) == 0 {
		cfg.Binds = DefaultBinds()
	}
	return cfg, nil
}
