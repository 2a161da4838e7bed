package db

const schema = `
CREATE TABLE IF NOT EXISTS systems (
    id         TEXT PRIMARY KEY,
    dataset_id TEXT NOT NULL DEFAULT 'default',
    config     TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS queries (
    id            TEXT PRIMARY KEY,
    query_type    TEXT NOT NULL CHECK(query_type IN ('text','song')),
    query_text    TEXT,
    seed_track_id TEXT,
    genres        TEXT NOT NULL DEFAULT '[]',
    era           TEXT,
    is_practice   INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME DEFAULT (datetime('now'))
);

-- Minimal track catalog: the policy engine needs artist identity for the
-- per-artist cap and seed-artist exclusion. Full metadata resolution
-- (titles for display, album art) lives outside the core.
CREATE TABLE IF NOT EXISTS tracks (
    id          TEXT PRIMARY KEY,
    artist_id   TEXT NOT NULL,
    artist_name TEXT,
    title       TEXT
);
CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist_id);

CREATE TABLE IF NOT EXISTS candidates (
    system_id TEXT NOT NULL,
    query_id  TEXT NOT NULL,
    rank      INTEGER NOT NULL CHECK(rank >= 1),
    track_id  TEXT NOT NULL,
    score     REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (system_id, query_id, rank)
);
CREATE INDEX IF NOT EXISTS idx_candidates_query ON candidates(query_id);

-- Policies are immutable once created; exactly one row has is_active = 1.
CREATE TABLE IF NOT EXISTS policies (
    version             TEXT PRIMARY KEY,
    final_k             INTEGER NOT NULL CHECK(final_k >= 1),
    max_per_artist      INTEGER NOT NULL CHECK(max_per_artist >= 1),
    exclude_seed_artist INTEGER NOT NULL DEFAULT 1,
    retrieval_depth_k   INTEGER NOT NULL CHECK(retrieval_depth_k >= 1),
    is_active           INTEGER NOT NULL DEFAULT 0,
    created_at          DATETIME DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS final_lists (
    policy_version TEXT NOT NULL,
    system_id      TEXT NOT NULL,
    query_id       TEXT NOT NULL,
    final_order    TEXT NOT NULL,
    filter_counts  TEXT NOT NULL DEFAULT '{}',
    depth_scanned  INTEGER NOT NULL DEFAULT 0,
    generated_at   DATETIME DEFAULT (datetime('now')),
    PRIMARY KEY (policy_version, system_id, query_id)
);

-- system_a < system_b lexicographically, so (A,B) and (B,A) collapse
-- to the same row.
CREATE TABLE IF NOT EXISTS pairs (
    id       TEXT PRIMARY KEY,
    system_a TEXT NOT NULL,
    system_b TEXT NOT NULL,
    UNIQUE (system_a, system_b),
    CHECK (system_a < system_b)
);

CREATE TABLE IF NOT EXISTS tasks (
    id                  TEXT PRIMARY KEY,
    query_id            TEXT NOT NULL,
    pair_id             TEXT NOT NULL,
    target_judgments    INTEGER NOT NULL CHECK(target_judgments >= 1),
    collected_judgments INTEGER NOT NULL DEFAULT 0,
    done                INTEGER NOT NULL DEFAULT 0,
    is_practice         INTEGER NOT NULL DEFAULT 0,
    created_at          DATETIME DEFAULT (datetime('now')),
    UNIQUE (query_id, pair_id),
    CHECK (collected_judgments <= target_judgments)
);
CREATE INDEX IF NOT EXISTS idx_tasks_open ON tasks(done) WHERE done = 0;

CREATE TABLE IF NOT EXISTS raters (
    id         TEXT PRIMARY KEY,
    handle     TEXT UNIQUE NOT NULL,
    soft_cap   INTEGER NOT NULL DEFAULT 1000,
    total_cap  INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT (datetime('now'))
);

-- Inserting a row here IS the claim. The (rater_id, task_id) unique key
-- makes concurrent double-claims lose cleanly, and the blinded
-- presentation is frozen on the row at claim time.
CREATE TABLE IF NOT EXISTS task_assignments (
    id              TEXT PRIMARY KEY,
    rater_id        TEXT NOT NULL,
    task_id         TEXT NOT NULL,
    rng_seed        TEXT NOT NULL,
    left_system_id  TEXT NOT NULL,
    right_system_id TEXT NOT NULL,
    left_list       TEXT NOT NULL,
    right_list      TEXT NOT NULL,
    assigned_at     DATETIME DEFAULT (datetime('now')),
    completed       INTEGER NOT NULL DEFAULT 0,
    completed_at    DATETIME,
    UNIQUE (rater_id, task_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_task ON task_assignments(task_id);
CREATE INDEX IF NOT EXISTS idx_assignments_rater ON task_assignments(rater_id);
CREATE INDEX IF NOT EXISTS idx_assignments_open ON task_assignments(task_id) WHERE completed = 0;

-- Append-only. One judgment per assignment.
CREATE TABLE IF NOT EXISTS judgments (
    id              TEXT PRIMARY KEY,
    assignment_id   TEXT NOT NULL UNIQUE,
    rater_id        TEXT NOT NULL,
    task_id         TEXT NOT NULL,
    query_id        TEXT NOT NULL,
    pair_id         TEXT NOT NULL,
    left_system_id  TEXT NOT NULL,
    right_system_id TEXT NOT NULL,
    left_list       TEXT NOT NULL,
    right_list      TEXT NOT NULL,
    choice          TEXT NOT NULL CHECK(choice IN ('left','right','tie')),
    confidence      INTEGER NOT NULL CHECK(confidence BETWEEN 1 AND 3),
    rng_seed        TEXT NOT NULL,
    presented_at    DATETIME,
    submitted_at    DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_judgments_task ON judgments(task_id);
CREATE INDEX IF NOT EXISTS idx_judgments_rater ON judgments(rater_id);
`
