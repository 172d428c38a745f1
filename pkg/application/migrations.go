package application

import (
	"io/fs"
	"sync"
)

func NewMigrationManager() MigrationManager {
	return &migrationManager{}
}

type migrationManager struct {
	mu      sync.Mutex
	sources []MigrationSource
}

// RegisterSchema records a directory of goose SQL migrations inside fsys.
func (m *migrationManager) RegisterSchema(fsys fs.FS, dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, MigrationSource{FS: fsys, Dir: dir})
}

func (m *migrationManager) Sources() []MigrationSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MigrationSource, len(m.sources))
	copy(out, m.sources)
	return out
}
