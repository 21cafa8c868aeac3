// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package canvas is the real-time synchronization transport for a
// server-authoritative canvas document.
//
// A [Transport] runs two independent channels against one canvas:
//
//   - The push stream ([PushStream]) is the ordered, at-least-once,
//     resumable server-to-client feed of committed operations and
//     system events. It is read either as a streaming response body
//     ([StreamFetch]) or the way a header-incapable event-source
//     client reads it ([StreamEventSource]); both resume from the
//     last event id seen.
//   - The socket ([Socket]) carries ephemeral signals in both
//     directions: gestures, readiness and spatial updates. It
//     authorizes with a short-lived ticket and answers the server's
//     "ping" heartbeat.
//
// Each channel reconnects on its own with capped exponential backoff
// ([ReconnectDelay]) and reports its own [Status]. Transient channel
// failures are never returned to callers; they appear as status
// changes and log warnings. Events from both channels flow through a
// [Router], which caches the latest safety decision per stream and
// delivers every event to subscribers in registration order. There is
// no ordering between the two channels.
//
// Mutations do not travel over either channel. [CommandClient.Send]
// posts a [Command] with optimistic concurrency: a conflict is
// returned as a [CommandResponse] value carrying the server's head
// revision, a policy block as a [*PolicyBlockError], and other
// failures as a [*RequestError]. Nothing on the request/response path
// retries.
//
// The transport never interprets operations. Applying them to a
// canvas state is the caller's job.
package canvas
