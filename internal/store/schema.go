package store

// Schema v1 - Initial database schema
//
// Uniqueness is enforced here, not in application code: concurrent workers
// (and separate processes) racing to create the same canonical entity are
// serialized by these constraints, with ON CONFLICT handling in the
// get-or-create path.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Canonical entities: one row per real-world title
CREATE TABLE IF NOT EXISTS entities (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  media_type TEXT NOT NULL DEFAULT 'movie',
  normalized_title TEXT NOT NULL,
  display_title TEXT NOT NULL,
  year INTEGER NOT NULL DEFAULT 0,  -- 0 = unknown
  external_id TEXT,                 -- industry id (e.g. IMDB), NULL until known
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME
);

-- At most one entity per external id when present
CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_external_id
  ON entities(external_id) WHERE external_id IS NOT NULL;

-- At most one entity per (normalized title, year, media type) while no
-- external id is attached; an identity upgrade moves the entity out of
-- this index and under the external-id constraint
CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_composite
  ON entities(normalized_title, media_type, year) WHERE external_id IS NULL;

CREATE INDEX IF NOT EXISTS idx_entities_type_year ON entities(media_type, year);
CREATE INDEX IF NOT EXISTS idx_entities_title ON entities(normalized_title);

-- Per-platform listings contributing to an entity
CREATE TABLE IF NOT EXISTS sources (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
  platform TEXT NOT NULL,
  source_id TEXT NOT NULL,
  url TEXT,
  raw_title TEXT,
  raw_payload TEXT,
  first_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  last_seen_at DATETIME,
  UNIQUE(platform, source_id)
);

CREATE INDEX IF NOT EXISTS idx_sources_entity ON sources(entity_id);

-- Genres, attached additively across sources
CREATE TABLE IF NOT EXISTS genres (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entity_genres (
  entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
  genre_id INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
  PRIMARY KEY (entity_id, genre_id)
);

-- Credits, attached additively across sources
CREATE TABLE IF NOT EXISTS credits (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
  role TEXT NOT NULL,
  name TEXT NOT NULL,
  billing_order INTEGER DEFAULT 0,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(entity_id, role, name)
);

CREATE INDEX IF NOT EXISTS idx_credits_entity ON credits(entity_id);

-- Ambiguous matches parked for manual review; never auto-resolved
CREATE TABLE IF NOT EXISTS review_queue (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  platform TEXT NOT NULL,
  source_id TEXT NOT NULL,
  raw_title TEXT,
  year INTEGER,
  media_type TEXT,
  reason TEXT NOT NULL,
  candidate_ids TEXT,  -- comma-separated entity ids
  details TEXT,
  resolved INTEGER DEFAULT 0,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_review_resolved ON review_queue(resolved);
`
