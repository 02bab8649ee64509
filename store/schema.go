package store

// schemaSQL is the DDL for all tables. Both tables are append-only from the
// engine's perspective.
const schemaSQL = `
-- Organizations, identified by their unique name
CREATE TABLE IF NOT EXISTS organizations (
    id INTEGER PRIMARY KEY,
    org_name TEXT NOT NULL UNIQUE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Directed edges: organization_id is the immediate parent of daughter_id
CREATE TABLE IF NOT EXISTS relationships (
    id INTEGER PRIMARY KEY,
    organization_id INTEGER NOT NULL REFERENCES organizations(id),
    daughter_id INTEGER NOT NULL REFERENCES organizations(id),
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(organization_id, daughter_id)
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_relationships_organization ON relationships(organization_id);
CREATE INDEX IF NOT EXISTS idx_relationships_daughter ON relationships(daughter_id);
`
