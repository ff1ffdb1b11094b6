package pgstore

// schemaDDL is the table set pgstore assumes is already present.
// Grounded on the teacher's own assumption (repository/postgres has no
// migration tooling in its module graph either): the repository layer
// issues plain SQL against tables it expects a deploy-time migration
// step to have created. EnsureSchema below runs this DDL defensively so
// local development and tests do not need a separate migration runner.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS people (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	role TEXT NOT NULL,
	pgy_level INT,
	faculty_role_tag TEXT,
	specialties TEXT[],
	active BOOLEAN NOT NULL DEFAULT TRUE,
	moonlighting_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
	sunday_call_count INT NOT NULL DEFAULT 0,
	weekday_call_count INT NOT NULL DEFAULT 0,
	fmit_week_count INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS rotations (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	required_pgy_levels INT[],
	required_certifications TEXT[],
	required_clearance TEXT,
	min_coverage_per_block INT NOT NULL,
	max_coverage_per_block INT NOT NULL
);

CREATE TABLE IF NOT EXISTS blocks (
	id UUID PRIMARY KEY,
	date DATE NOT NULL,
	session TEXT NOT NULL,
	sequence_number INT NOT NULL,
	weekend BOOLEAN NOT NULL,
	holiday BOOLEAN NOT NULL DEFAULT FALSE,
	holiday_name TEXT,
	UNIQUE (date, session)
);

CREATE TABLE IF NOT EXISTS assignments (
	id UUID PRIMARY KEY,
	block_id UUID NOT NULL REFERENCES blocks(id),
	person_id UUID NOT NULL REFERENCES people(id),
	rotation_id UUID NOT NULL REFERENCES rotations(id),
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (block_id, person_id)
);

CREATE TABLE IF NOT EXISTS call_assignments (
	id UUID PRIMARY KEY,
	date DATE NOT NULL,
	person_id UUID NOT NULL REFERENCES people(id),
	call_type TEXT NOT NULL,
	weekend BOOLEAN NOT NULL,
	holiday BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (date, call_type)
);

CREATE TABLE IF NOT EXISTS absences (
	id UUID PRIMARY KEY,
	person_id UUID NOT NULL REFERENCES people(id),
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	kind TEXT NOT NULL,
	blocking BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS swap_records (
	id UUID PRIMARY KEY,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	source_person_id UUID NOT NULL REFERENCES people(id),
	source_week_start DATE NOT NULL,
	target_person_id UUID REFERENCES people(id),
	target_week_start DATE,
	reason TEXT,
	requested_at TIMESTAMPTZ NOT NULL,
	requested_by UUID NOT NULL,
	approved_at TIMESTAMPTZ,
	approved_by UUID,
	executed_at TIMESTAMPTZ,
	executed_by UUID,
	rolled_back_at TIMESTAMPTZ,
	rolled_back_by UUID,
	rollback_reason TEXT,
	transaction_id BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS snapshots (
	id UUID PRIMARY KEY,
	swap_record_id UUID NOT NULL UNIQUE REFERENCES swap_records(id),
	assignments JSONB NOT NULL,
	call_assignments JSONB NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS schedule_runs (
	id UUID PRIMARY KEY,
	status TEXT NOT NULL,
	algorithm TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	idempotency_key TEXT NOT NULL UNIQUE,
	payload_hash TEXT NOT NULL,
	assignments_created INT NOT NULL DEFAULT 0,
	call_assignments_created INT NOT NULL DEFAULT 0,
	solve_duration_ms BIGINT NOT NULL DEFAULT 0,
	incumbent_found BOOLEAN NOT NULL DEFAULT FALSE,
	total_penalty DOUBLE PRECISION NOT NULL DEFAULT 0,
	override_count INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	transaction_id BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	correlation_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	transaction_id BIGINT NOT NULL
);

CREATE SEQUENCE IF NOT EXISTS transaction_id_seq;
`
