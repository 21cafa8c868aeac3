// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with a timer fallback) so
// that individual tests do not need their own timers. These are
// the only place in the test suite where real wall-clock timeouts are
// used; reconnect timing itself is always driven by a fake clock.
//
// [DiscardLogger] and [CaptureLogger] build *slog.Logger values for
// tests: one silent, one that records every entry so a test can assert
// that a warning was logged.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no dependencies inside the module.
package testutil
