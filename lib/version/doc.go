// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for canvasctl.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] is the short git SHA of the build
//   - [GitDirty] is "true" if there were uncommitted changes
//   - [BuildTime] is the UTC timestamp of the build
//   - [Version] is the semantic version string, set manually for releases
//
// They default to "unknown" and "0.1.0-dev" in development builds and
// test runs. [Info] formats them for --version, [Full] adds the Go
// toolchain and platform, and [UserAgent] is sent on every canvas
// request made by canvasctl.
package version
