// Package config loads runtime configuration for the Kumo client.
//
// # Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. KUMO_* environment variables.
//  4. Command-line flags, which override everything else.
//
// # JSON schema
//
// Durations may be strings like "3s" or integer nanoseconds:
//
//	{
//	  "backend_url": "https://project.example.co",
//	  "anon_key": "public-anon-key",
//	  "webhook_url": "https://n8n.example/webhook/kumo",
//	  "webhook_test_url": "https://n8n.example/webhook-test/kumo",
//	  "online_check_interval": "5s",
//	  "s3": {"bucket": "avatars", "endpoint": "http://127.0.0.1:9000"},
//	  "openai": {"api_key": "sk-..."}
//	}
package config
