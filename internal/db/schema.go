package db

// schema is the full database schema.
//
// stock_items.quantity is the nominal central-pool total and is never
// touched by transfers; the undistributed remainder is always derived
// as quantity minus the sum of stock_allocations rows for the item.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    full_name     TEXT,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'medical_rep' CHECK (role IN (
        'ceo', 'admin', 'product_manager', 'stock_keeper',
        'marketer', 'sales_manager', 'medical_rep')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS categories (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS specialties (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS stock_items (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    category_id   INTEGER NOT NULL REFERENCES categories(id),
    specialty_id  INTEGER REFERENCES specialties(id),
    quantity      INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    price_cents   INTEGER NOT NULL DEFAULT 0 CHECK (price_cents >= 0),
    expiry        DATE,
    unique_number TEXT,
    notes         TEXT,
    image         BLOB,
    image_mime    TEXT,
    created_by    INTEGER REFERENCES users(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE TABLE IF NOT EXISTS stock_allocations (
    id            INTEGER PRIMARY KEY,
    stock_item_id INTEGER NOT NULL REFERENCES stock_items(id),
    user_id       INTEGER NOT NULL REFERENCES users(id),
    quantity      INTEGER NOT NULL CHECK (quantity > 0),
    allocated_by  INTEGER REFERENCES users(id),
    allocated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (stock_item_id, user_id)
);

CREATE TABLE IF NOT EXISTS stock_movements (
    id            INTEGER PRIMARY KEY,
    stock_item_id INTEGER NOT NULL REFERENCES stock_items(id),
    from_user_id  INTEGER REFERENCES users(id),
    to_user_id    INTEGER REFERENCES users(id),
    quantity      INTEGER NOT NULL CHECK (quantity > 0),
    moved_by      INTEGER REFERENCES users(id),
    notes         TEXT,
    moved_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS inventory_requests (
    id                 INTEGER PRIMARY KEY,
    reference          TEXT NOT NULL UNIQUE,
    type               TEXT NOT NULL CHECK (type IN (
        'prepare_order', 'receive_inventory', 'inventory_share')),
    status             TEXT NOT NULL DEFAULT 'pending' CHECK (status IN (
        'pending', 'pending_secondary', 'approved', 'denied', 'completed')),
    requested_by       INTEGER NOT NULL REFERENCES users(id),
    assigned_to        INTEGER REFERENCES users(id),
    final_assignee     INTEGER REFERENCES users(id),
    share_from_user_id INTEGER REFERENCES users(id),
    share_to_user_id   INTEGER REFERENCES users(id),
    notes              TEXT,
    secondary_notes    TEXT,
    file_url           TEXT,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at       DATETIME
);

CREATE TABLE IF NOT EXISTS request_items (
    id            INTEGER PRIMARY KEY,
    request_id    INTEGER NOT NULL REFERENCES inventory_requests(id),
    stock_item_id INTEGER REFERENCES stock_items(id),
    item_name     TEXT,
    quantity      INTEGER NOT NULL CHECK (quantity > 0),
    notes         TEXT,
    CHECK (stock_item_id IS NOT NULL OR item_name IS NOT NULL)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`
