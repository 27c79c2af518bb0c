// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

// seq packs the block number and the index within the block, see sequence.
const receiptTableSchema = `CREATE TABLE IF NOT EXISTS receipt (
	seq INTEGER PRIMARY KEY NOT NULL,
	txID BLOB NOT NULL,
	origin BLOB NOT NULL,
	method TEXT NOT NULL,
	reverted INTEGER NOT NULL,
	reason TEXT NOT NULL,
	eventCount INTEGER NOT NULL);

CREATE INDEX IF NOT EXISTS receipt_i0 ON receipt(origin);
CREATE INDEX IF NOT EXISTS receipt_i1 ON receipt(txID);`

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY NOT NULL,
	txID BLOB NOT NULL,
	txOrigin BLOB NOT NULL,
	address BLOB NOT NULL,
	topic0 BLOB,
	topic1 BLOB,
	topic2 BLOB,
	topic3 BLOB,
	topic4 BLOB,
	data BLOB);

CREATE INDEX IF NOT EXISTS event_i0 ON event(address);
CREATE INDEX IF NOT EXISTS event_i1 ON event(topic0);
CREATE INDEX IF NOT EXISTS event_i2 ON event(topic1);
CREATE INDEX IF NOT EXISTS event_i3 ON event(topic2);
CREATE INDEX IF NOT EXISTS event_i4 ON event(topic3);
CREATE INDEX IF NOT EXISTS event_i5 ON event(topic4);`
