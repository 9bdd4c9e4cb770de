package keyring

import (
	"errors"

	"github.com/99designs/keyring"
)

// ErrNotFound is returned when no password is stored for a connection.
var ErrNotFound = keyring.ErrKeyNotFound

// Store keeps connection passwords out of the config file.
type Store interface {
	Password(conn string) (string, error)
	SetPassword(conn, password string) error
	Delete(conn string) error
}

type store struct{ kr keyring.Keyring }

func New(appName string) (Store, error) {
	kr, err := keyring.Open(keyring.Config{
		ServiceName:              appName,
		KeychainName:             appName,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, err
	}
	return &store{kr: kr}, nil
}

// Wrap uses an already opened keyring, e.g. keyring.NewArrayKeyring in tests.
func Wrap(kr keyring.Keyring) Store { return &store{kr: kr} }

func key(conn string) string { return "connection/" + conn }

func (s *store) Password(conn string) (string, error) {
	item, err := s.kr.Get(key(conn))
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

func (s *store) SetPassword(conn, password string) error {
	if password == "" {
		return errors.New("empty password")
	}
	return s.kr.Set(keyring.Item{
		Key:   key(conn),
		Data:  []byte(password),
		Label: "db2batch " + conn,
	})
}

func (s *store) Delete(conn string) error { return s.kr.Remove(key(conn)) }
