package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validJSON = `{
  "max": {"token": "max-secret", "chatIds": [100, 200]},
  "telegram": {"botToken": "bot-secret", "chatId": -1001234}
}`

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", validJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Max.Token != "max-secret" {
		t.Errorf("Max.Token = %q", cfg.Max.Token)
	}
	if len(cfg.Max.ChatIDs) != 2 || cfg.Max.ChatIDs[0] != 100 {
		t.Errorf("Max.ChatIDs = %v", cfg.Max.ChatIDs)
	}
	if cfg.Telegram.ChatID != -1001234 {
		t.Errorf("Telegram.ChatID = %d", cfg.Telegram.ChatID)
	}
	// Defaults survive a partial file.
	if cfg.General.LogLevel != "info" {
		t.Errorf("General.LogLevel = %q, want the default", cfg.General.LogLevel)
	}
	if cfg.General.StatePath == "" {
		t.Error("General.StatePath default missing")
	}
}

func TestLoad_YAML(t *testing.T) {
	content := `
max:
  token: max-secret
  chatIds: [300]
telegram:
  botToken: bot-secret
  chatId: 42
  threadId: 7
general:
  logLevel: debug
`
	cfg, err := Load(writeConfig(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Max.ChatIDs[0] != 300 || cfg.Telegram.ThreadID != 7 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.General.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.General.LogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("Load on a missing file succeeded")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing max token",
			content: `{"max": {"chatIds": [1]}, "telegram": {"botToken": "b", "chatId": 1}}`,
			wantErr: "max.token",
		},
		{
			name:    "no monitored chats",
			content: `{"max": {"token": "t"}, "telegram": {"botToken": "b", "chatId": 1}}`,
			wantErr: "max.chatIds",
		},
		{
			name:    "missing bot token",
			content: `{"max": {"token": "t", "chatIds": [1]}, "telegram": {"chatId": 1}}`,
			wantErr: "telegram.botToken",
		},
		{
			name:    "missing destination chat",
			content: `{"max": {"token": "t", "chatIds": [1]}, "telegram": {"botToken": "b"}}`,
			wantErr: "telegram.chatId",
		},
		{
			name: "bad log level",
			content: `{"general": {"logLevel": "loud"},
				"max": {"token": "t", "chatIds": [1]},
				"telegram": {"botToken": "b", "chatId": 1}}`,
			wantErr: "general.logLevel",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.json", tt.content))
			if err == nil {
				t.Fatal("Load succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MAXGRAM_TEST_TOKEN", "from-env")
	os.Unsetenv("MAXGRAM_TEST_UNSET")

	tests := []struct {
		in, want string
	}{
		{"${MAXGRAM_TEST_TOKEN}", "from-env"},
		{"${MAXGRAM_TEST_TOKEN:-fallback}", "from-env"},
		{"${MAXGRAM_TEST_UNSET:-fallback}", "fallback"},
		{"${MAXGRAM_TEST_UNSET}", "${MAXGRAM_TEST_UNSET}"},
		{"prefix-${MAXGRAM_TEST_TOKEN}-suffix", "prefix-from-env-suffix"},
		{"no vars here", "no vars here"},
	}
	for _, tt := range tests {
		if got := ExpandEnvVars(tt.in); got != tt.want {
			t.Errorf("ExpandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad_EnvExpansionInFile(t *testing.T) {
	t.Setenv("MAXGRAM_TEST_BOT", "expanded-bot-token")
	content := `{
  "max": {"token": "${MAXGRAM_TEST_MISSING:-default-max}", "chatIds": [1]},
  "telegram": {"botToken": "${MAXGRAM_TEST_BOT}", "chatId": 5}
}`
	cfg, err := Load(writeConfig(t, "config.json", content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Max.Token != "default-max" {
		t.Errorf("Max.Token = %q", cfg.Max.Token)
	}
	if cfg.Telegram.BotToken != "expanded-bot-token" {
		t.Errorf("Telegram.BotToken = %q", cfg.Telegram.BotToken)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Defaults()
	cfg.Max.Token = "t"
	cfg.Max.ChatIDs = []int64{9}
	cfg.Telegram.BotToken = "b"
	cfg.Telegram.ChatID = 11

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Max.Token != "t" || loaded.Telegram.ChatID != 11 {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir in test environment")
	}
	if got := ExpandPath("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("ExpandPath = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath left absolute path alone? got %q", got)
	}
}
