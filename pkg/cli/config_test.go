package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newTestConfig(t *testing.T) (*Config, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wsstream", "config.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	return cfg, path
}

func mustAdd(t *testing.T, cfg *Config, name string, ctx *Context) {
	t.Helper()
	if ctx.Endpoint == "" {
		ctx.Endpoint = "ws://localhost:8765"
	}
	if err := cfg.AddContext(name, ctx); err != nil {
		t.Fatalf("AddContext(%q) error: %v", name, err)
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"sk-1234567890abcdef", "sk-1***********cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestContext_Extra(t *testing.T) {
	ctx := &Context{Name: "test"}
	if got := ctx.GetExtra("key"); got != "" {
		t.Errorf("GetExtra on nil map = %q, want empty string", got)
	}

	ctx.SetExtra("smart_format", "true")
	if got := ctx.GetExtra("smart_format"); got != "true" {
		t.Errorf("GetExtra(smart_format) = %q, want %q", got, "true")
	}
}

func TestContext_Validate(t *testing.T) {
	tests := []struct {
		endpoint string
		ok       bool
	}{
		{"ws://localhost:8765", true},
		{"wss://api.example.com", true},
		{"HTTPS://api.example.com", true},
		{"", false},
		{"localhost:8765", false},
		{"ftp://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			err := (&Context{Endpoint: tt.endpoint}).Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate(%q) error = %v, want ok=%v", tt.endpoint, err, tt.ok)
			}
		})
	}
}

func TestContext_Redacted(t *testing.T) {
	ctx := &Context{
		APIKey:  "sk-1234567890abcdef",
		Headers: map[string]string{"authorization": "Bearer abcdefghijkl", "X-Team": "asr"},
	}

	r := ctx.Redacted()
	if r.APIKey != "sk-1***********cdef" {
		t.Errorf("APIKey = %q", r.APIKey)
	}
	if r.Headers["authorization"] != "Bear************ijkl" {
		t.Errorf("authorization = %q", r.Headers["authorization"])
	}
	if r.Headers["X-Team"] != "asr" {
		t.Errorf("X-Team = %q", r.Headers["X-Team"])
	}
	if ctx.APIKey != "sk-1234567890abcdef" || ctx.Headers["authorization"] != "Bearer abcdefghijkl" {
		t.Error("Redacted modified the original context")
	}
}

func TestLoadConfig_NewConfig(t *testing.T) {
	cfg, path := newTestConfig(t)

	if cfg.Contexts == nil {
		t.Error("Contexts should be initialized")
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file should be created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %v, want 0600", perm)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("contexts: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig should fail on malformed YAML")
	}
}

func TestConfig_AddContext(t *testing.T) {
	cfg, _ := newTestConfig(t)
	mustAdd(t, cfg, "production", &Context{APIKey: "test-key", Model: "nova-2"})

	ctx := cfg.Contexts["production"]
	if ctx == nil {
		t.Fatal("Context not added")
	}
	if ctx.Name != "production" {
		t.Errorf("Context.Name = %q, want %q", ctx.Name, "production")
	}

	if err := cfg.AddContext("broken", &Context{}); err == nil {
		t.Error("AddContext should reject a context without endpoint")
	}
	if _, ok := cfg.Contexts["broken"]; ok {
		t.Error("invalid context should not be stored")
	}
}

func TestConfig_DeleteContext(t *testing.T) {
	cfg, _ := newTestConfig(t)
	mustAdd(t, cfg, "ctx1", &Context{APIKey: "key1"})
	mustAdd(t, cfg, "ctx2", &Context{APIKey: "key2"})
	if err := cfg.UseContext("ctx1"); err != nil {
		t.Fatal(err)
	}

	if err := cfg.DeleteContext("ctx2"); err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}
	if cfg.CurrentContext != "ctx1" {
		t.Errorf("CurrentContext = %q, want ctx1", cfg.CurrentContext)
	}

	if err := cfg.DeleteContext("ctx1"); err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext should be cleared, got %q", cfg.CurrentContext)
	}

	if err := cfg.DeleteContext("nonexistent"); err == nil {
		t.Error("DeleteContext should fail for non-existent context")
	}
}

func TestConfig_ResolveContext(t *testing.T) {
	cfg, _ := newTestConfig(t)

	if _, err := cfg.ResolveContext(""); err == nil {
		t.Error("ResolveContext should fail when no current context")
	}
	if err := cfg.UseContext("nonexistent"); err == nil {
		t.Error("UseContext should fail for non-existent context")
	}

	mustAdd(t, cfg, "ctx1", &Context{APIKey: "key1"})
	mustAdd(t, cfg, "ctx2", &Context{APIKey: "key2"})
	if err := cfg.UseContext("ctx1"); err != nil {
		t.Fatal(err)
	}

	ctx, err := cfg.ResolveContext("ctx2")
	if err != nil {
		t.Fatalf("ResolveContext(ctx2) error: %v", err)
	}
	if ctx.APIKey != "key2" {
		t.Errorf("APIKey = %q, want %q", ctx.APIKey, "key2")
	}

	ctx, err = cfg.ResolveContext("")
	if err != nil {
		t.Fatalf("ResolveContext('') error: %v", err)
	}
	if ctx.APIKey != "key1" {
		t.Errorf("APIKey = %q, want %q", ctx.APIKey, "key1")
	}

	if _, err := cfg.ResolveContext("missing"); err == nil {
		t.Error("ResolveContext should fail for non-existent context")
	}
}

func TestConfig_ListContexts(t *testing.T) {
	cfg, _ := newTestConfig(t)
	for _, name := range []string{"staging", "production", "development"} {
		mustAdd(t, cfg, name, &Context{})
	}

	want := []string{"development", "production", "staging"}
	if got := cfg.ListContexts(); !slices.Equal(got, want) {
		t.Errorf("ListContexts() = %v, want %v", got, want)
	}
}

func TestConfig_Persistence(t *testing.T) {
	cfg1, path := newTestConfig(t)
	mustAdd(t, cfg1, "test", &Context{
		Endpoint:      "wss://api.test.com",
		APIKey:        "secret-key",
		SampleRate:    8000,
		Keywords:      []string{"giztoy"},
		Headers:       map[string]string{"X-Team": "asr"},
		RetryAttempts: 5,
		IdleMS:        1500,
	})
	if err := cfg1.UseContext("test"); err != nil {
		t.Fatal(err)
	}

	cfg2, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg2.CurrentContext != "test" {
		t.Errorf("CurrentContext = %q, want %q", cfg2.CurrentContext, "test")
	}

	ctx, err := cfg2.GetContext("test")
	if err != nil {
		t.Fatalf("GetContext error: %v", err)
	}
	if ctx.Name != "test" || ctx.APIKey != "secret-key" || ctx.Endpoint != "wss://api.test.com" {
		t.Errorf("context = %+v", ctx)
	}
	if ctx.SampleRate != 8000 || ctx.RetryAttempts != 5 || Millis(ctx.IdleMS).Seconds() != 1.5 {
		t.Errorf("tuning = %+v", ctx)
	}
	if !slices.Equal(ctx.Keywords, []string{"giztoy"}) || ctx.Headers["X-Team"] != "asr" {
		t.Errorf("keywords/headers = %v / %v", ctx.Keywords, ctx.Headers)
	}
}
