// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"database/sql"
	"sync"
)

// preparedSet keeps one prepared statement per query text for the lifetime of
// the log db. Statements are closed together by closeAll.
type preparedSet struct {
	db    *sql.DB
	stmts sync.Map // string -> *sql.Stmt
}

func newPreparedSet(db *sql.DB) *preparedSet {
	return &preparedSet{db: db}
}

// stmt returns the prepared statement for query, preparing it on first use.
func (p *preparedSet) stmt(query string) (*sql.Stmt, error) {
	if s, ok := p.stmts.Load(query); ok {
		return s.(*sql.Stmt), nil
	}
	prepared, err := p.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	s, raced := p.stmts.LoadOrStore(query, prepared)
	if raced {
		_ = prepared.Close()
	}
	return s.(*sql.Stmt), nil
}

func (p *preparedSet) closeAll() {
	p.stmts.Range(func(query, s any) bool {
		_ = s.(*sql.Stmt).Close()
		p.stmts.Delete(query)
		return true
	})
}
