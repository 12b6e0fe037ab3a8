package users

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// fileUser is one entry of a YAML user file:
//
//	users:
//	  - id: alice
//	    wallet_address: "0x..."
//	    orderly:
//	      key: ed25519:...
//	      secret: ...
//	      account_id: "0x..."
type fileUser struct {
	ID            string `yaml:"id"`
	WalletAddress string `yaml:"wallet_address"`
	Orderly       *struct {
		Key       string `yaml:"key"`
		Secret    string `yaml:"secret"`
		AccountID string `yaml:"account_id"`
	} `yaml:"orderly"`
}

type userFile struct {
	Users []fileUser `yaml:"users"`
}

// FileDirectory implements domain.UserDirectory over a YAML file. The file
// is read on every call so edits apply to the next scheduled run.
type FileDirectory struct {
	path string
}

// NewFileDirectory returns a directory reading path.
func NewFileDirectory(path string) *FileDirectory {
	return &FileDirectory{path: path}
}

// ListUsers implements domain.UserDirectory.
func (d *FileDirectory) ListUsers(_ context.Context, wallet string) ([]domain.User, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("users: read %s: %w", d.path, err)
	}

	var f userFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("users: parse %s: %w", d.path, err)
	}

	wallet = strings.TrimSpace(wallet)
	out := make([]domain.User, 0, len(f.Users))
	for i, fu := range f.Users {
		addr := strings.TrimSpace(fu.WalletAddress)
		if wallet != "" && !strings.EqualFold(addr, wallet) {
			continue
		}
		u := domain.User{ID: fu.ID, WalletAddress: addr}
		if u.ID == "" {
			u.ID = fmt.Sprintf("%s#%d", d.path, i)
		}
		if fu.Orderly != nil {
			u.Orderly = &domain.OrderlyCredentials{
				Key:       fu.Orderly.Key,
				Secret:    fu.Orderly.Secret,
				AccountID: fu.Orderly.AccountID,
			}
		}
		out = append(out, u)
	}
	return out, nil
}

var _ domain.UserDirectory = (*FileDirectory)(nil)
