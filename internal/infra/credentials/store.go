package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"server/internal/infra"
	"server/internal/sqlinline"
)

// Provider keys known to the store. Environment variables win over stored
// credentials; the store exists so operators can rotate keys without a
// redeploy.
const (
	ProviderAIVerify  = "aiverify"
	ProviderCustodian = "custodian"
	ProviderBank      = "bank"
)

func KnownProvider(name string) bool {
	switch name {
	case ProviderAIVerify, ProviderCustodian, ProviderBank:
		return true
	}
	return false
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderCredential, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetToken(ctx context.Context, provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is required")
	}
	if !KnownProvider(provider) {
		return errors.New("unknown provider " + provider)
	}
	return s.upsert(ctx, provider, key, nil)
}

func (s *Store) DeleteToken(ctx context.Context, provider string) error {
	if !KnownProvider(provider) {
		return errors.New("unknown provider " + provider)
	}
	_, err := s.sql.Exec(ctx, sqlinline.QDeleteProviderCredential, provider)
	return err
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertProviderCredential, provider, token, raw)
	return err
}
