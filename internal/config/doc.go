// Package config handles configuration loading for confstore.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from CONFSTORE_CONFIG environment variable
//  2. ./confstore.yaml (current directory)
//  3. ~/.config/confstore/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${CONFSTORE_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Database:
//
//	database:
//	  path: "/var/lib/confstore/confstore.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${CONFSTORE_JWT_SECRET}"  # Required
//	  token_expiry: "24h"                    # time.ParseDuration syntax
//	  bcrypt_cost: 0                         # 0 = library default
//
// Seeding:
//
//	seed:
//	  path: "seed.toml"  # Default file for `confstore seed`
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load(config.ResolvePath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
