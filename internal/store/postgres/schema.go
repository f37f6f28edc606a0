package postgres

// Schema is the DDL the queries in this package are written against.
const Schema = `
CREATE TABLE IF NOT EXISTS wallets (
    id                TEXT PRIMARY KEY,
    owner_id          TEXT NOT NULL,
    currency          TEXT NOT NULL,
    balance           BIGINT NOT NULL DEFAULT 0,
    available_balance BIGINT NOT NULL DEFAULT 0,
    version           BIGINT NOT NULL DEFAULT 0,
    created_at        TIMESTAMPTZ NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL,
    CHECK (available_balance >= 0 AND available_balance <= balance)
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id              TEXT PRIMARY KEY,
    wallet_id       TEXT NOT NULL REFERENCES wallets (id),
    sequence        BIGINT NOT NULL,
    type            TEXT NOT NULL,
    amount          BIGINT NOT NULL CHECK (amount <> 0),
    currency        TEXT NOT NULL,
    completion_type TEXT NOT NULL DEFAULT '',
    reservation_id  TEXT NOT NULL DEFAULT '',
    reference       TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL,
    UNIQUE (wallet_id, sequence)
);

CREATE INDEX IF NOT EXISTS ledger_entries_wallet_time_idx
    ON ledger_entries (wallet_id, created_at, sequence);

CREATE TABLE IF NOT EXISTS rate_locks (
    id             TEXT PRIMARY KEY,
    base_currency  TEXT NOT NULL,
    quote_currency TEXT NOT NULL DEFAULT '',
    rate           NUMERIC NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    expires_at     TIMESTAMPTZ NOT NULL,
    expired_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS reservations (
    id                    TEXT PRIMARY KEY,
    wallet_id             TEXT NOT NULL REFERENCES wallets (id),
    rate_lock_id          TEXT NOT NULL REFERENCES rate_locks (id),
    amount                BIGINT NOT NULL CHECK (amount > 0),
    purchase_ledger_id    TEXT NOT NULL DEFAULT '',
    service_fee_ledger_id TEXT NOT NULL DEFAULT '',
    status                TEXT NOT NULL,
    completion_type       TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL,
    resolved_at           TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS reservations_pending_idx
    ON reservations (rate_lock_id) WHERE status = 'pending';
`
