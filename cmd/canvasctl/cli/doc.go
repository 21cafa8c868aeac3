// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind canvasctl. A
// [Command] is a node in a tree: it either dispatches to a subcommand
// named by the first positional argument or parses its pflag set and
// calls Run. Unknown commands and flags produce a "did you mean"
// suggestion when an edit distance of three or less finds one.
//
// [NewCommandLogger] picks a text or JSON slog handler depending on
// whether stderr is a terminal, and [ExitError] lets a command exit
// non-zero without an extra error line.
package cli
