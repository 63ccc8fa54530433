package service

import "biblioteca/pkg/secrets"

type bcryptHasher struct{}

func (bcryptHasher) Hash(password string) (string, error) {
	return secrets.Hash(password)
}

func (bcryptHasher) Verify(password, hash string) (bool, error) {
	return secrets.Verify(password, hash)
}
