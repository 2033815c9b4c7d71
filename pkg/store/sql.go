// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (source,
                      start_time)
VALUES (?, ?)`

	closeSessionSQL = `
UPDATE sessions
SET end_time = ?,
    snapshot = ?
WHERE id = ?`

	selectSessionSQL = `
SELECT s.id,
       s.source,
       s.start_time,
       s.end_time,
       (SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
FROM sessions s
WHERE s.id = ?`

	selectSessionsSQL = `
SELECT s.id,
       s.source,
       s.start_time,
       s.end_time,
       (SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
FROM sessions s
ORDER BY s.id`

	selectSnapshotSQL = `
SELECT snapshot
FROM sessions
WHERE id = ?`

	insertEventSQL = `
INSERT INTO events (session_id,
                    timestamp,
                    sensor_id,
                    value)
VALUES (?, ?, ?, ?)`

	selectEventsSQL = `
SELECT timestamp,
       sensor_id,
       value
FROM events
WHERE session_id = ?
ORDER BY id`
)
