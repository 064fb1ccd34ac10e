/*
Package maptools is a library for extracting and cataloguing level maps
from Rayman 3 game data.
*/
package maptools

import "log"

type MapTools struct {
	db     *MapDB
	logger *log.Logger
}

func New(file string, logger *log.Logger) (*MapTools, error) {
	db, err := NewMapDB(file)
	if err != nil {
		return nil, err
	}

	return &MapTools{
		db:     db,
		logger: logger,
	}, nil
}

func (m *MapTools) Close() error {
	return m.db.Close()
}

// CountMaps returns the number of maps in the catalogue.
func (m *MapTools) CountMaps() (int, error) {
	return m.db.CountMaps()
}
