package maptools

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/quakeman22/Rayman-3-Map-Tools/tilemap"
)

// MapDB is the sqlite catalogue of decoded map resources, keyed by the
// CRC of the resource bytes.
type MapDB struct {
	db *sql.DB
}

func NewMapDB(file string) (*MapDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS resource (id INTEGER PRIMARY KEY NOT NULL, crc TEXT NOT NULL UNIQUE, path TEXT NOT NULL, offset INTEGER NOT NULL, size INTEGER NOT NULL)"); err != nil {
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS map (id INTEGER PRIMARY KEY NOT NULL, resource_id INTEGER NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL, defaulted INTEGER NOT NULL, stride_mismatch INTEGER NOT NULL, visual BLOB NOT NULL, collision BLOB NOT NULL, FOREIGN KEY(resource_id) REFERENCES resource(id))"); err != nil {
		return nil, err
	}

	return &MapDB{
		db: db,
	}, nil
}

func (db *MapDB) Close() error {
	return db.db.Close()
}

// addResource records where a resource was found. A CRC seen before keeps
// its id but has its location refreshed, so rescans follow moved files.
func (db *MapDB) addResource(path string, offset, size int64, crc string) (int64, error) {
	var id int64
	switch err := db.db.QueryRow("SELECT id FROM resource WHERE crc = ?", crc).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := db.db.Exec("INSERT INTO resource (crc, path, offset, size) VALUES (?, ?, ?, ?)", crc, path, offset, size)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		if _, err := db.db.Exec("UPDATE resource SET path = ?, offset = ?, size = ? WHERE id = ?", path, offset, size, id); err != nil {
			return 0, err
		}
		return id, nil
	default:
		return 0, err
	}
}

func (db *MapDB) addMap(resource int64, m *tilemap.Map) error {
	visual, err := marshalMatrix(m.Visual)
	if err != nil {
		return err
	}
	collision, err := marshalMatrix(m.Collision)
	if err != nil {
		return err
	}

	if _, err := db.db.Exec("INSERT OR REPLACE INTO map (resource_id, width, height, defaulted, stride_mismatch, visual, collision) VALUES (?, ?, ?, ?, ?, ?, ?)",
		resource, m.Width, m.Height, m.Stats.Defaulted(), m.Stats.StrideMismatch, visual, collision); err != nil {
		return err
	}
	return nil
}

// StoredMap is one catalogue entry with its matrices decoded back out of
// their blobs.
type StoredMap struct {
	Path           string
	Offset         int64
	Size           int64
	CRC            string
	Width          int
	Height         int
	Defaulted      int
	StrideMismatch bool
	Visual         [][]byte
	Collision      [][]byte
}

const storedMapColumns = "r.path, r.offset, r.size, r.crc, m.width, m.height, m.defaulted, m.stride_mismatch, m.visual, m.collision"

func scanStoredMap(scan func(...interface{}) error) (*StoredMap, error) {
	var sm StoredMap
	var visual, collision []byte

	if err := scan(&sm.Path, &sm.Offset, &sm.Size, &sm.CRC, &sm.Width, &sm.Height, &sm.Defaulted, &sm.StrideMismatch, &visual, &collision); err != nil {
		return nil, err
	}

	var err error
	if sm.Visual, err = unmarshalMatrix(visual); err != nil {
		return nil, err
	}
	if sm.Collision, err = unmarshalMatrix(collision); err != nil {
		return nil, err
	}

	return &sm, nil
}

// FindMapByCRC returns the catalogue entry for a resource CRC, or nil when
// the resource has never been catalogued.
func (db *MapDB) FindMapByCRC(crc string) (*StoredMap, error) {
	row := db.db.QueryRow("SELECT "+storedMapColumns+" FROM map AS m JOIN resource AS r ON m.resource_id = r.id WHERE r.crc = ?", crc)

	switch sm, err := scanStoredMap(row.Scan); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return sm, nil
	default:
		return nil, err
	}
}

// EachMap calls f for every catalogue entry. An error from f stops the
// iteration and is returned.
func (db *MapDB) EachMap(f func(*StoredMap) error) error {
	rows, err := db.db.Query("SELECT " + storedMapColumns + " FROM map AS m JOIN resource AS r ON m.resource_id = r.id ORDER BY r.path")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		sm, err := scanStoredMap(rows.Scan)
		if err != nil {
			return err
		}
		if err := f(sm); err != nil {
			return err
		}
	}

	return rows.Err()
}

// CountMaps returns the number of catalogue entries.
func (db *MapDB) CountMaps() (int, error) {
	var n int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM map").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
