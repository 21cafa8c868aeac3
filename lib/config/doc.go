// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration file loading for canvasctl.
//
// Configuration is loaded from a single file specified by either the
// CANVAS_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search.
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas; everything else is read as YAML. Unknown keys are
// rejected so a misspelled field fails loudly.
//
// The file may contain mode-specific sections (development, staging,
// production) that override base values when [Config].Mode matches.
// After overrides, ${VAR} and ${VAR:-default} patterns in the hosts,
// the token and the context fields are expanded from the environment,
// which keeps bearer tokens out of the file itself.
//
// Key exports:
//
//   - [Config] -- hosts, token, request context, channel strategies
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Transport] -- builds a canvas.Config from the file
package config
