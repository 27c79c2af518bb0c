// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages contract storage.
//
// Every contract owns a storage space addressed by 32 byte slots. Values are
// kept rlp encoded. Writes are journaled in a stacked map so that a call can
// be reverted to any checkpoint, and Stage collects the net changes for a
// single atomic batch write to the backing kv store.
package state
