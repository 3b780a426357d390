package history

const schema = `
CREATE TABLE IF NOT EXISTS campaign_runs (
    id TEXT PRIMARY KEY,
    start_ref TEXT NOT NULL,
    end_ref TEXT NOT NULL,
    ledger_path TEXT NOT NULL,
    format TEXT,
    unattended BOOLEAN DEFAULT FALSE,
    status TEXT NOT NULL,
    started_at TIMESTAMP,
    finished_at TIMESTAMP,
    picked INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    conflicts INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_campaign_runs_started_at ON campaign_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_campaign_runs_status ON campaign_runs(status);
`
