package lockbox

import (
	"io"
	"os"
	"path/filepath"
)

// --------------------------------------------------------------------------
// Snapshot Persistence
// --------------------------------------------------------------------------

// SaveSnapshot writes the whole record store to w.
func (s *Service) SaveSnapshot(w io.Writer) error {
	return s.store.Save(w)
}

// LoadSnapshot replaces the record store's contents from r.
func (s *Service) LoadSnapshot(r io.Reader) error {
	return s.store.Load(r)
}

// SaveFile writes a snapshot to path, replacing the file atomically via a
// temp file in the same directory.
func (s *Service) SaveFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "lockbox-snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := s.SaveSnapshot(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	s.logger.Info().Str("path", path).Msg("snapshot saved")
	return nil
}

// LoadFile restores a snapshot from path.
func (s *Service) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s.LoadSnapshot(f); err != nil {
		return err
	}

	s.logger.Info().Str("path", path).Msg("snapshot loaded")
	return nil
}
