package storage

import "bytes"

// Mock is a test backend with failure injection.
type Mock struct {
	// CommitErr, when set, is returned by every Commit.
	CommitErr error

	// LoadErr, when set, is returned by every Load.
	LoadErr error

	// FailAfter fails Commit once Commits reaches this count. Zero
	// disables the trigger.
	FailAfter int
	FailErr   error

	// Corrupt flips a byte of the snapshot returned by Load.
	Corrupt bool

	Data    []byte
	Commits int
	Loads   int
}

func (m *Mock) Commit(data []byte) error {
	m.Commits++
	if m.CommitErr != nil {
		return m.CommitErr
	}
	if m.FailAfter > 0 && m.Commits >= m.FailAfter {
		return m.FailErr
	}
	m.Data = bytes.Clone(data)
	return nil
}

func (m *Mock) Load() ([]byte, error) {
	m.Loads++
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	data := bytes.Clone(m.Data)
	if m.Corrupt && len(data) > 0 {
		data[len(data)/2] ^= 0xFF
	}
	return data, nil
}
