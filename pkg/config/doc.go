/*
Package config defines the root configuration for sitewatch.

Configuration is loaded from a YAML file, defaulted, overridden from
SITEWATCH_* environment variables, and validated. All validation errors
are collected and reported together rather than failing on the first.

Example configuration file:

	engine:
	  similarity_threshold: 0.70
	  overrun_factor: 1.5
	  severity_overrides:
	    wrong_zone: medium
	  escalation_rules:
	    - when: kind == "wrong_tool" && score < 0.3
	      severity: high

	provider:
	  name: openai
	  type: openai
	  base_url: https://api.openai.com/v1
	  model: text-embedding-3-small

	storage:
	  backend: sqlite
	  path: data/sitewatch.db

Environment variables take precedence over the file, e.g.
SITEWATCH_PROVIDER_API_KEY overrides provider.api_key.
*/
package config
