package storage

// Hash, address and signature columns hold lowercase hex in canonical
// little-endian orientation, exactly as delivered on the wire.
var ledgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS blocks (
		height            BIGINT NOT NULL PRIMARY KEY,
		hash              VARCHAR(64) NOT NULL,
		prev_hash         VARCHAR(64) NOT NULL,
		merkle_root       VARCHAR(64) NOT NULL,
		signature         VARCHAR(144) NOT NULL,
		random_seed       VARCHAR(64) NOT NULL,
		time_offset       BIGINT NOT NULL,
		time_stamp        BIGINT NOT NULL,
		tx_count          INTEGER NOT NULL,
		enrollment_count  INTEGER NOT NULL,
		active_validators INTEGER NOT NULL)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_blocks_hash ON blocks (hash)`,
	`CREATE INDEX IF NOT EXISTS idx_blocks_time ON blocks (time_stamp)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		block_height BIGINT NOT NULL,
		tx_index     INTEGER NOT NULL,
		tx_hash      VARCHAR(64) NOT NULL,
		type         INTEGER NOT NULL,
		payload      BLOB NULL,
		fee          BIGINT NOT NULL,
		tx_size      BIGINT NOT NULL,
		time_stamp   BIGINT NOT NULL,
		PRIMARY KEY (block_height, tx_index))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_txs_hash ON transactions (tx_hash)`,

	`CREATE TABLE IF NOT EXISTS tx_inputs (
		block_height BIGINT NOT NULL,
		tx_index     INTEGER NOT NULL,
		in_index     INTEGER NOT NULL,
		tx_hash      VARCHAR(64) NOT NULL,
		utxo_key     VARCHAR(64) NOT NULL,
		unlock_sig   VARCHAR(144) NOT NULL,
		PRIMARY KEY (block_height, tx_index, in_index))`,
	`CREATE INDEX IF NOT EXISTS idx_inputs_utxo ON tx_inputs (utxo_key)`,

	// tx_outputs doubles as the UTXO ledger; used_height marks consumption
	`CREATE TABLE IF NOT EXISTS tx_outputs (
		block_height  BIGINT NOT NULL,
		tx_index      INTEGER NOT NULL,
		output_index  INTEGER NOT NULL,
		tx_hash       VARCHAR(64) NOT NULL,
		utxo_key      VARCHAR(64) NOT NULL,
		address       VARCHAR(40) NOT NULL,
		amount        BIGINT NOT NULL,
		type          INTEGER NOT NULL,
		lock_type     INTEGER NOT NULL,
		lock_bytes    VARCHAR(40) NOT NULL,
		unlock_height BIGINT NOT NULL,
		used_height   BIGINT NULL,
		PRIMARY KEY (block_height, tx_index, output_index))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_outputs_utxo ON tx_outputs (utxo_key)`,
	`CREATE INDEX IF NOT EXISTS idx_outputs_addr ON tx_outputs (address)`,

	`CREATE TABLE IF NOT EXISTS enrollments (
		enrolled_at  BIGINT NOT NULL,
		utxo_key     VARCHAR(64) NOT NULL,
		address      VARCHAR(40) NOT NULL,
		commitment   VARCHAR(64) NOT NULL,
		cycle_length BIGINT NOT NULL,
		enroll_sig   VARCHAR(144) NOT NULL,
		PRIMARY KEY (enrolled_at, utxo_key))`,
	`CREATE INDEX IF NOT EXISTS idx_enroll_addr ON enrollments (address)`,

	`CREATE TABLE IF NOT EXISTS preimages (
		utxo_key      VARCHAR(64) NOT NULL PRIMARY KEY,
		address       VARCHAR(40) NOT NULL,
		anchor_height BIGINT NOT NULL,
		cycle_length  BIGINT NOT NULL,
		tip_hash      VARCHAR(64) NOT NULL,
		tip_height    BIGINT NOT NULL)`,

	`CREATE TABLE IF NOT EXISTS proposal_fees (
		tx_hash      VARCHAR(64) NOT NULL PRIMARY KEY,
		app_name     VARCHAR(64) NOT NULL,
		proposal_id  VARCHAR(64) NOT NULL,
		destination  VARCHAR(40) NOT NULL,
		amount       BIGINT NOT NULL,
		block_height BIGINT NOT NULL)`,

	`CREATE TABLE IF NOT EXISTS proposals (
		proposal_id       VARCHAR(64) NOT NULL PRIMARY KEY,
		app_name          VARCHAR(64) NOT NULL,
		proposal_type     INTEGER NOT NULL,
		title             VARCHAR(256) NOT NULL,
		block_height      BIGINT NOT NULL,
		tx_hash           VARCHAR(64) NOT NULL,
		proposer_address  VARCHAR(40) NOT NULL,
		fee_destination   VARCHAR(40) NOT NULL,
		fee_tx_hash       VARCHAR(64) NOT NULL,
		vote_start_height BIGINT NOT NULL,
		vote_end_height   BIGINT NOT NULL,
		doc_hash          VARCHAR(64) NOT NULL,
		fund_amount       BIGINT NOT NULL,
		proposal_fee      BIGINT NOT NULL,
		vote_fee          BIGINT NOT NULL,
		status            VARCHAR(16) NOT NULL,
		result            VARCHAR(16) NOT NULL)`,

	`CREATE TABLE IF NOT EXISTS ballots (
		tx_hash           VARCHAR(64) NOT NULL PRIMARY KEY,
		proposal_id       VARCHAR(64) NOT NULL,
		validator_address VARCHAR(40) NOT NULL,
		block_height      BIGINT NOT NULL,
		sequence          BIGINT NOT NULL,
		encrypted_ballot  BLOB NOT NULL,
		voter_card        BLOB NOT NULL,
		signature         VARCHAR(144) NOT NULL,
		answer            VARCHAR(16) NOT NULL,
		reject_reason     VARCHAR(64) NOT NULL)`,
	`CREATE INDEX IF NOT EXISTS idx_ballots_proposal ON ballots (proposal_id, validator_address)`,

	`CREATE TABLE IF NOT EXISTS proposal_metadata (
		proposal_id VARCHAR(64) NOT NULL PRIMARY KEY,
		title       VARCHAR(256) NOT NULL,
		description TEXT NOT NULL,
		attachments TEXT NOT NULL)`,
}
