// Package anchors persists the cross-reference index (id="..." -> flat
// page) that C3 builds in memory per §4.3.2, so footnote and TOC jumps
// still resolve after a process restart without re-parsing the chapter
// (supplemented feature 1). It is additive: the on-disk section cache
// format of §4.4 is unaffected, and the index is invalidated exactly when
// the section cache it describes is (§4.4.2).
package anchors

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"papyrus/common"
	"papyrus/internal/parser"
)

const schema = `
CREATE TABLE IF NOT EXISTS anchors (
	render_hash TEXT NOT NULL,
	spine_index INTEGER NOT NULL,
	name TEXT NOT NULL,
	page INTEGER NOT NULL,
	PRIMARY KEY (render_hash, spine_index, name)
);
`

// Index is a single-file SQLite-backed anchor store, keyed additionally by
// a render configuration hash so it invalidates in lockstep with the
// section cache it describes (§4.4.2 "render configuration changed").
type Index struct {
	conn *sqlite.Conn
}

// Open creates or reopens the anchor database at path.
func Open(path string) (*Index, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("anchors: open %s: %w", path, common.ErrIoFailure)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("anchors: create schema: %w", common.ErrIoFailure)
	}
	return &Index{conn: conn}, nil
}

// Close releases the underlying connection.
func (x *Index) Close() error {
	return x.conn.Close()
}

// Replace atomically swaps spineIndex's recorded anchors for renderHash with
// records, the way a fresh C3 batch for that spine item supersedes whatever
// was indexed before (e.g. after a cache rebuild following a config change).
func (x *Index) Replace(renderHash string, spineIndex int, records []parser.AnchorRecord) (err error) {
	release := sqlitex.Save(x.conn)
	defer release(&err)

	if err = sqlitex.Execute(x.conn,
		"DELETE FROM anchors WHERE render_hash = ? AND spine_index = ?",
		&sqlitex.ExecOptions{Args: []any{renderHash, spineIndex}},
	); err != nil {
		return err
	}
	for _, r := range records {
		if err = sqlitex.Execute(x.conn,
			"INSERT INTO anchors (render_hash, spine_index, name, page) VALUES (?, ?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{renderHash, spineIndex, r.Name, r.Page}},
		); err != nil {
			return err
		}
	}
	return nil
}

// Lookup resolves name within spineIndex under renderHash to a flat page
// index, as recorded by the most recent Replace call.
func (x *Index) Lookup(renderHash string, spineIndex int, name string) (int, bool, error) {
	page := -1
	err := sqlitex.Execute(x.conn,
		"SELECT page FROM anchors WHERE render_hash = ? AND spine_index = ? AND name = ?",
		&sqlitex.ExecOptions{
			Args: []any{renderHash, spineIndex, name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				page = int(stmt.ColumnInt64(0))
				return nil
			},
		},
	)
	if err != nil {
		return 0, false, fmt.Errorf("anchors: lookup %q: %w", name, common.ErrIoFailure)
	}
	return page, page >= 0, nil
}

// InvalidateSection drops every anchor recorded for spineIndex across all
// render hashes, for when the section cache itself is invalidated (a config
// change means old render hashes can never be looked up again anyway, but a
// forced rebuild explicitly clears them so the table doesn't grow unbounded).
func (x *Index) InvalidateSection(spineIndex int) error {
	if err := sqlitex.Execute(x.conn,
		"DELETE FROM anchors WHERE spine_index = ?",
		&sqlitex.ExecOptions{Args: []any{spineIndex}},
	); err != nil {
		return fmt.Errorf("anchors: invalidate spine %d: %w", spineIndex, common.ErrIoFailure)
	}
	return nil
}
