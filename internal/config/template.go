package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// field is one key of the rendered default config.
type field struct {
	key     string
	value   any
	comment string
}

// section is one top-level block of the rendered default config.
type section struct {
	key     string
	comment string
	fields  []field
}

func defaultSections(d Config) []section {
	return []section{
		{"server", "HTTP server", []field{
			{"addr", d.Server.Addr, "listen address"},
			{"read_timeout", d.Server.ReadTimeout, ""},
			{"write_timeout", d.Server.WriteTimeout, ""},
			{"templates_dir", d.Server.TemplatesDir, "directory overriding the embedded page templates"},
		}},
		{"database", "SQLite storage for site content and applications", []field{
			{"path", d.Database.Path, ""},
			{"auto_migrate", d.Database.AutoMigrate, "apply pending migrations on start"},
			{"backup_before_migrate", d.Database.BackupBeforeMigrate, "copy the database to <path>.bak first"},
		}},
		{"cache", "", []field{
			{"page_ttl", d.Cache.PageTTL, "how long a page looked up by file name is reused"},
		}},
		{"watcher", "Refresh cached content when another process writes the database", []field{
			{"enabled", d.Watcher.Enabled, ""},
			{"debounce", d.Watcher.Debounce, ""},
		}},
		{"telegram", "Notify a Telegram chat about new applications", []field{
			{"enabled", d.Telegram.Enabled, ""},
			{"token_env", d.Telegram.TokenEnv, "environment variable holding the bot token"},
			{"chat_id", d.Telegram.ChatID, "numeric chat id or @channel_name"},
			{"timeout", d.Telegram.Timeout, ""},
			{"api_base_url", d.Telegram.APIBaseURL, ""},
		}},
		{"tracing", "Distributed tracing", []field{
			{"enabled", d.Tracing.Enabled, ""},
			{"exporter", d.Tracing.Exporter, `"none", "file", "stdout" or "otlp"`},
			{"file_path", d.Tracing.FilePath, "default: ~/.config/recruit/traces/traces.jsonl"},
			{"otlp_endpoint", d.Tracing.OTLPEndpoint, ""},
			{"sample_rate", d.Tracing.SampleRate, "0.0 to 1.0"},
			{"service_name", d.Tracing.ServiceName, ""},
		}},
		{"log", "Logging (empty path logs to stderr)", []field{
			{"path", d.Log.Path, ""},
			{"level", d.Log.Level, `"debug", "info", "warn" or "error"`},
			{"debug", d.Log.Debug, "shorthand for level: debug"},
		}},
	}
}

func scalarNode(v any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch val := v.(type) {
	case string:
		n.Tag, n.Value = "!!str", val
		if val == "" {
			n.Style = yaml.DoubleQuotedStyle
		}
	case bool:
		n.Tag, n.Value = "!!bool", strconv.FormatBool(val)
	case float64:
		n.Tag, n.Value = "!!float", strconv.FormatFloat(val, 'f', -1, 64)
		if !strings.ContainsAny(n.Value, ".e") {
			n.Value += ".0"
		}
	case time.Duration:
		n.Tag, n.Value = "!!str", val.String()
	default:
		n.Tag, n.Value = "!!str", fmt.Sprint(val)
	}
	return n
}

// DefaultConfigTemplate renders Defaults as commented YAML.
func DefaultConfigTemplate() (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range defaultSections(Defaults()) {
		body := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range s.fields {
			value := scalarNode(f.value)
			value.LineComment = f.comment
			body.Content = append(body.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: f.key}, value)
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: s.key, HeadComment: s.comment}
		root.Content = append(root.Content, key, body)
	}
	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: "Recruit site configuration",
		Content:     []*yaml.Node{root},
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return "", fmt.Errorf("rendering default config: %w", err)
	}
	_ = encoder.Close()
	return buf.String(), nil
}
